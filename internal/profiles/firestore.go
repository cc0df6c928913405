package profiles

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreRepository stores one document per UID in a collection
// (default "users"), the layout the browser client used.
type FirestoreRepository struct {
	col *firestore.CollectionRef
}

func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	return &FirestoreRepository{col: client.Collection(collection)}
}

func (r *FirestoreRepository) Get(ctx context.Context, uid string) (*Profile, error) {
	snap, err := r.col.Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore get %s: %w", uid, err)
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("firestore decode %s: %w", uid, err)
	}
	if p.UID == "" {
		p.UID = snap.Ref.ID
	}
	return &p, nil
}

func (r *FirestoreRepository) Create(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if _, err := r.col.Doc(p.UID).Set(ctx, p); err != nil {
		return fmt.Errorf("firestore set %s: %w", p.UID, err)
	}
	return nil
}

func (r *FirestoreRepository) Update(ctx context.Context, uid string, f Fields) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
	for _, fv := range f.list() {
		updates = append(updates, firestore.Update{Path: fv.key, Value: fv.value})
	}
	if _, err := r.col.Doc(uid).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("firestore update %s: %w", uid, err)
	}
	return nil
}
