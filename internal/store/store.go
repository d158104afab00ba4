package store

import (
	"context"

	"github.com/spigell/bidwin/internal/tender"
)

// Store persists RFPs and the product catalog. SaveRecord writes the whole stage
// output and the new status together; a failed call leaves the RFP unchanged.
type Store interface {
	CreateRFP(ctx context.Context, rfp *tender.RFP) (*tender.RFP, error)
	GetRFP(ctx context.Context, id int) (*tender.RFP, error)
	FindRFPByFile(ctx context.Context, fileURL string) (*tender.RFP, error)
	ListRFPs(ctx context.Context) ([]*tender.RFP, error)
	SaveRecord(ctx context.Context, id int, status tender.Status, record *tender.Record) error
	SetStatus(ctx context.Context, id int, status tender.Status) error

	ListProducts(ctx context.Context) ([]tender.Product, error)
	// SeedProducts inserts the products only when the catalog is empty and returns
	// the number of inserted rows.
	SeedProducts(ctx context.Context, products []tender.Product) (int, error)

	Close()
}
