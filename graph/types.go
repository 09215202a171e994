// ABOUTME: Core data types for snapshots of an arena's object graph
// ABOUTME: Defines Object, ObjID and Roots, where IDs are arena handles

package graph

// ObjID identifies an object. Snapshots use the arena handle, so 0 is the
// null reference and never names an object.
type ObjID uint64

// Object is one allocated object in a snapshot.
type Object struct {
	ID        ObjID
	Type      string  // catalog type name
	Size      uint64  // payload bytes
	Slots     uint64  // payload slots, 0 for immediate objects
	Immediate bool    // payload stored in the indirection record
	Finalize  bool    // finalizer still pending
	Ptrs      []ObjID // child handles, including nulls and reserved handles
}

// Roots holds the non-null register contents, in register order.
type Roots struct {
	IDs []ObjID
}
