package ledger

import "context"

// RecordStore is the byte-level custodian of all persisted state. Every
// record is an individually addressed blob whose size is fixed at creation.
//
// Implementations must guarantee:
//   - Create fails with sentinel.ErrAlreadyExists if the address is occupied;
//     it never overwrites.
//   - Read fails with sentinel.ErrNotFound for addresses never created.
//   - Write fails with sentinel.ErrNotFound, and replaces the full blob;
//     the new data must match the size fixed at creation.
//
// Mutual exclusion per address is the store's concern; callers treat each
// call as atomic.
type RecordStore interface {
	Create(ctx context.Context, addr Address, size int, data []byte) error
	Read(ctx context.Context, addr Address) ([]byte, error)
	Write(ctx context.Context, addr Address, data []byte) error
}
