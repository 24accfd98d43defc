package main

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// profileLoader batches peer profile lookups. Listing matches or walking
// through requests touches many peer profiles; the loader coalesces the
// lookups inside a short window into one GetMany call. The loader lives for
// the whole process, so it runs without result memoization: only loads
// inside the same wait window share a batch, and later reads always see
// profile updates.
type profileLoader struct {
	loader *dataloader.Loader[int64, *Profile]
}

func newProfileLoader(profiles ProfileStore) *profileLoader {
	return &profileLoader{
		loader: dataloader.NewBatchedLoader(
			profileBatchFn(profiles),
			dataloader.WithWait[int64, *Profile](16*time.Millisecond),
			dataloader.WithCache[int64, *Profile](&dataloader.NoCache[int64, *Profile]{}),
		),
	}
}

// Load fetches one profile; a missing profile is (nil, nil).
func (l *profileLoader) Load(ctx context.Context, userID int64) (*Profile, error) {
	thunk := l.loader.Load(ctx, userID)
	return thunk()
}

// LoadMany fetches a set of profiles keyed by user id. Missing profiles map
// to nil entries; the first loader error aborts the whole call.
func (l *profileLoader) LoadMany(ctx context.Context, userIDs []int64) (map[int64]*Profile, error) {
	thunk := l.loader.LoadMany(ctx, userIDs)
	values, errs := thunk()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	out := make(map[int64]*Profile, len(userIDs))
	for i, id := range userIDs {
		out[id] = values[i]
	}
	return out, nil
}

func profileBatchFn(profiles ProfileStore) dataloader.BatchFunc[int64, *Profile] {
	return func(ctx context.Context, keys []int64) []*dataloader.Result[*Profile] {
		results := make([]*dataloader.Result[*Profile], len(keys))

		found, err := profiles.GetMany(ctx, keys)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result[*Profile]{Error: err}
			}
			return results
		}

		// Missing keys resolve to nil data, mirroring ProfileStore.Get.
		for i, key := range keys {
			results[i] = &dataloader.Result[*Profile]{Data: found[key]}
		}
		return results
	}
}
