package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func conflictDoc(id string, startMS, endMS, createdMS int64) bookingDocument {
	return bookingDocument{
		ID:        id,
		ListingID: "ls-1",
		Status:    "pending",
		StartMS:   startMS,
		EndMS:     endMS,
		CreatedMS: createdMS,
	}
}

// filterMatches evaluates the conflict filter against a candidate document.
// It only understands the operators conflictFilter emits.
func filterMatches(t *testing.T, filter bson.M, d bookingDocument) bool {
	t.Helper()
	if filter["listing_id"] != d.ListingID {
		return false
	}
	statuses, ok := filter["status"].(bson.M)["$in"].([]string)
	require.True(t, ok)
	inStatus := false
	for _, s := range statuses {
		if s == d.Status {
			inStatus = true
		}
	}
	if !inStatus {
		return false
	}
	if filter["_id"].(bson.M)["$ne"] == d.ID {
		return false
	}
	if d.StartMS >= filter["start_ms"].(bson.M)["$lt"].(int64) {
		return false
	}
	if d.EndMS <= filter["end_ms"].(bson.M)["$gt"].(int64) {
		return false
	}
	branches, ok := filter["$or"].([]bson.M)
	require.True(t, ok)
	require.Len(t, branches, 2)
	if d.CreatedMS < branches[0]["created_ms"].(bson.M)["$lt"].(int64) {
		return true
	}
	return d.CreatedMS == branches[1]["created_ms"].(int64) && d.ID < branches[1]["_id"].(bson.M)["$lt"].(string)
}

func TestConflictFilterRanking(t *testing.T) {
	t.Run("earlier insert always ranks first", func(t *testing.T) {
		earlier := conflictDoc("bk-z", 100, 200, 1000)
		later := conflictDoc("bk-a", 100, 200, 1001)

		// Only the later insert sees a conflict, despite its lower id.
		assert.True(t, filterMatches(t, conflictFilter(later), earlier))
		assert.False(t, filterMatches(t, conflictFilter(earlier), later))
	})

	t.Run("same millisecond breaks the tie on id", func(t *testing.T) {
		a := conflictDoc("bk-a", 100, 200, 1000)
		b := conflictDoc("bk-b", 100, 200, 1000)

		// Exactly one of the racing pair backs off: the higher id.
		assert.True(t, filterMatches(t, conflictFilter(b), a))
		assert.False(t, filterMatches(t, conflictFilter(a), b))
	})

	t.Run("non overlapping slot never conflicts", func(t *testing.T) {
		doc := conflictDoc("bk-b", 200, 300, 1001)
		adjacent := conflictDoc("bk-a", 100, 200, 1000)
		assert.False(t, filterMatches(t, conflictFilter(doc), adjacent))
	})

	t.Run("cancelled booking never conflicts", func(t *testing.T) {
		doc := conflictDoc("bk-b", 100, 200, 1001)
		cancelled := conflictDoc("bk-a", 100, 200, 1000)
		cancelled.Status = "cancelled"
		assert.False(t, filterMatches(t, conflictFilter(doc), cancelled))
	})

	t.Run("other listing never conflicts", func(t *testing.T) {
		doc := conflictDoc("bk-b", 100, 200, 1001)
		other := conflictDoc("bk-a", 100, 200, 1000)
		other.ListingID = "ls-2"
		assert.False(t, filterMatches(t, conflictFilter(doc), other))
	})

	t.Run("a document never conflicts with itself", func(t *testing.T) {
		doc := conflictDoc("bk-a", 100, 200, 1000)
		assert.False(t, filterMatches(t, conflictFilter(doc), doc))
	})
}
