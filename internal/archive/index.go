package archive

import "context"

// Index is the in-memory set of photo ids known to the archive. It is
// loaded once per sync run and updated as photos are created, so a photo
// seen in the photostream sweep is recognized as existing when an album
// sweep reaches it later in the same run.
//
// Link existence is deliberately not cached: it is only consulted for
// photos that already exist, so a point query against the store suffices.
type Index struct {
	photos map[string]struct{}
	store  *Store
}

// BuildIndex loads the photo id set from the store.
func BuildIndex(ctx context.Context, store *Store) (*Index, error) {
	ids, err := store.PhotoIDSet(ctx)
	if err != nil {
		return nil, err
	}

	return &Index{photos: ids, store: store}, nil
}

// Contains reports whether the photo id is already archived.
func (ix *Index) Contains(photoID string) bool {
	_, ok := ix.photos[photoID]
	return ok
}

// Add records a newly created photo so later sweeps in the same run see it.
func (ix *Index) Add(photoID string) {
	ix.photos[photoID] = struct{}{}
}

// Len returns the number of known photos.
func (ix *Index) Len() int {
	return len(ix.photos)
}

// HasLink reports whether the photo-album association exists in the store.
func (ix *Index) HasLink(ctx context.Context, photoID, albumID string) (bool, error) {
	return ix.store.HasLink(ctx, photoID, albumID)
}
