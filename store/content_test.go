package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickclicks/board/models"
)

func TestCreateThreadAnonymity(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	content := NewContentStore(db)

	thread, err := content.CreateThread(NewThreadInput{
		Title:       "secret",
		Body:        "an anonymous confession",
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		IsAnonymous: true,
	})
	require.NoError(t, err)

	// Public attribution cleared, real author kept for moderation.
	assert.Nil(t, thread.AuthorID)
	assert.Empty(t, thread.AuthorName)
	assert.Equal(t, author.ID, thread.RealAuthorID)
	assert.Equal(t, "Anonymous", thread.DisplayName())
}

func TestCreateThreadBannedAuthor(t *testing.T) {
	db := openTestDB(t)
	banned := seedUser(t, db, "troll", models.RoleUser, true)
	content := NewContentStore(db)

	_, err := content.CreateThread(NewThreadInput{
		Title:    "spam",
		Body:     "spam spam",
		AuthorID: banned.ID,
	})
	assert.ErrorIs(t, err, ErrAuthorBanned)
}

func TestCreateCommentParentMustMatchThread(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	threadA := seedThread(t, db, author, "a")
	threadB := seedThread(t, db, author, "b")
	content := NewContentStore(db)

	parent, err := content.CreateComment(NewCommentInput{
		ThreadID: threadA.ID, Body: "root", AuthorID: author.ID, AuthorName: author.Name,
	})
	require.NoError(t, err)

	// Nesting under a parent in the same thread works.
	child, err := content.CreateComment(NewCommentInput{
		ThreadID: threadA.ID, ParentID: &parent.ID, Body: "reply",
		AuthorID: author.ID, AuthorName: author.Name,
	})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, *child.ParentID)

	// A parent from another thread is rejected.
	_, err = content.CreateComment(NewCommentInput{
		ThreadID: threadB.ID, ParentID: &parent.ID, Body: "cross-thread",
		AuthorID: author.ID, AuthorName: author.Name,
	})
	assert.ErrorIs(t, err, ErrBadParent)

	// So is a parent that does not exist.
	missing := uint(9999)
	_, err = content.CreateComment(NewCommentInput{
		ThreadID: threadA.ID, ParentID: &missing, Body: "dangling",
		AuthorID: author.ID, AuthorName: author.Name,
	})
	assert.ErrorIs(t, err, ErrBadParent)
}

func TestSoftDeleteAndRestoreThread(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	admin := seedUser(t, db, "mod", models.RoleAdmin, false)
	thread := seedThread(t, db, author, "doomed")
	content := NewContentStore(db)

	_, changed, err := content.SoftDeleteThread(thread.ID, admin.ID, "off topic")
	require.NoError(t, err)
	assert.True(t, changed)

	// Gone from the public view, still visible to admins.
	_, err = content.GetThread(thread.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
	kept, err := content.GetThread(thread.ID, true)
	require.NoError(t, err)
	assert.True(t, kept.IsDeleted)
	assert.Equal(t, "off topic", kept.DeleteReason)
	require.NotNil(t, kept.DeletedByID)
	assert.Equal(t, admin.ID, *kept.DeletedByID)

	// Deleting again is a no-op, not an error.
	_, changed, err = content.SoftDeleteThread(thread.ID, admin.ID, "again")
	require.NoError(t, err)
	assert.False(t, changed)

	_, changed, err = content.RestoreThread(thread.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	restored, err := content.GetThread(thread.ID, false)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)
	assert.Empty(t, restored.DeleteReason)

	// Restoring a live thread is also a no-op.
	_, changed, err = content.RestoreThread(thread.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDeletedThreadRejectsComments(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	thread := seedThread(t, db, author, "doomed")
	content := NewContentStore(db)

	_, _, err := content.SoftDeleteThread(thread.ID, author.ID, "")
	require.NoError(t, err)

	_, err = content.CreateComment(NewCommentInput{
		ThreadID: thread.ID, Body: "too late", AuthorID: author.ID,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleThreadUpvote(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	voterA := seedUser(t, db, "bob", models.RoleUser, false)
	voterB := seedUser(t, db, "carol", models.RoleUser, false)
	thread := seedThread(t, db, author, "popular")
	content := NewContentStore(db)

	count, upvoted, err := content.ToggleThreadUpvote(thread.ID, voterA.ID)
	require.NoError(t, err)
	assert.True(t, upvoted)
	assert.Equal(t, int64(1), count)

	count, upvoted, err = content.ToggleThreadUpvote(thread.ID, voterB.ID)
	require.NoError(t, err)
	assert.True(t, upvoted)
	assert.Equal(t, int64(2), count)

	// Toggling again removes the vote.
	count, upvoted, err = content.ToggleThreadUpvote(thread.ID, voterA.ID)
	require.NoError(t, err)
	assert.False(t, upvoted)
	assert.Equal(t, int64(1), count)

	// Stored count always equals the number of distinct upvoters.
	var rows int64
	require.NoError(t, db.Model(&models.ThreadUpvote{}).
		Where("thread_id = ?", thread.ID).Count(&rows).Error)
	var fresh models.Thread
	require.NoError(t, db.First(&fresh, thread.ID).Error)
	assert.Equal(t, rows, fresh.UpvoteCount)
}

func TestToggleCommentUpvote(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	voter := seedUser(t, db, "bob", models.RoleUser, false)
	thread := seedThread(t, db, author, "t")
	content := NewContentStore(db)

	comment, err := content.CreateComment(NewCommentInput{
		ThreadID: thread.ID, Body: "nice", AuthorID: author.ID,
	})
	require.NoError(t, err)

	count, upvoted, err := content.ToggleCommentUpvote(comment.ID, voter.ID)
	require.NoError(t, err)
	assert.True(t, upvoted)
	assert.Equal(t, int64(1), count)

	count, upvoted, err = content.ToggleCommentUpvote(comment.ID, voter.ID)
	require.NoError(t, err)
	assert.False(t, upvoted)
	assert.Equal(t, int64(0), count)
}

func TestLockAndPinFlags(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	admin := seedUser(t, db, "mod", models.RoleAdmin, false)
	thread := seedThread(t, db, author, "t")
	content := NewContentStore(db)

	_, changed, err := content.SetThreadLocked(thread.ID, admin.ID, true)
	require.NoError(t, err)
	assert.True(t, changed)

	locked, err := content.GetThread(thread.ID, false)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	require.NotNil(t, locked.LockedByID)
	assert.Equal(t, admin.ID, *locked.LockedByID)

	// Locking twice changes nothing.
	_, changed, err = content.SetThreadLocked(thread.ID, admin.ID, true)
	require.NoError(t, err)
	assert.False(t, changed)

	_, changed, err = content.SetThreadLocked(thread.ID, admin.ID, false)
	require.NoError(t, err)
	assert.True(t, changed)
	unlocked, _ := content.GetThread(thread.ID, false)
	assert.Nil(t, unlocked.LockedAt)

	_, changed, err = content.SetThreadPinned(thread.ID, true)
	require.NoError(t, err)
	assert.True(t, changed)
	_, changed, err = content.SetThreadPinned(thread.ID, true)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestListThreadsVisibilityAndCounts(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	visible := seedThread(t, db, author, "visible")
	hidden := seedThread(t, db, author, "hidden")
	content := NewContentStore(db)

	for i := 0; i < 3; i++ {
		_, err := content.CreateComment(NewCommentInput{
			ThreadID: visible.ID, Body: "c", AuthorID: author.ID,
		})
		require.NoError(t, err)
	}
	deletable, err := content.CreateComment(NewCommentInput{
		ThreadID: visible.ID, Body: "gone", AuthorID: author.ID,
	})
	require.NoError(t, err)
	_, _, err = content.SoftDeleteComment(deletable.ID, author.ID, "")
	require.NoError(t, err)

	_, _, err = content.SoftDeleteThread(hidden.ID, author.ID, "")
	require.NoError(t, err)

	threads, err := content.ListThreads(false)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, visible.ID, threads[0].ID)
	// Deleted comments do not count toward the visible total.
	assert.Equal(t, int64(3), threads[0].CommentCount)

	all, err := content.ListThreads(true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBulkThreadAction(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	admin := seedUser(t, db, "mod", models.RoleAdmin, false)
	a := seedThread(t, db, author, "a")
	b := seedThread(t, db, author, "b")
	content := NewContentStore(db)

	// b is already deleted, so only a changes.
	_, _, err := content.SoftDeleteThread(b.ID, admin.ID, "")
	require.NoError(t, err)

	result, err := content.BulkThreadAction([]uint{a.ID, b.ID, 9999}, "delete", admin.ID, "sweep")
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, result.ChangedIDs)

	result, err = content.BulkThreadAction([]uint{a.ID, b.ID}, "restore", admin.ID, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, result.ChangedIDs)

	_, err = content.BulkThreadAction([]uint{a.ID}, "purge", admin.ID, "")
	assert.Error(t, err)
}

func TestBulkCommentAction(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "alice", models.RoleUser, false)
	admin := seedUser(t, db, "mod", models.RoleAdmin, false)
	thread := seedThread(t, db, author, "a")
	content := NewContentStore(db)

	first, err := content.CreateComment(NewCommentInput{
		ThreadID: thread.ID, Body: "first", AuthorID: author.ID, AuthorName: author.Name,
	})
	require.NoError(t, err)
	second, err := content.CreateComment(NewCommentInput{
		ThreadID: thread.ID, Body: "second", AuthorID: author.ID, AuthorName: author.Name,
	})
	require.NoError(t, err)

	// second is already deleted, so only first changes.
	_, _, err = content.SoftDeleteComment(second.ID, admin.ID, "")
	require.NoError(t, err)

	result, err := content.BulkCommentAction([]uint{first.ID, second.ID, 9999}, "delete", admin.ID, "sweep")
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID}, result.ChangedIDs)

	result, err = content.BulkCommentAction([]uint{first.ID, second.ID}, "restore", admin.ID, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{first.ID, second.ID}, result.ChangedIDs)

	_, err = content.BulkCommentAction([]uint{first.ID}, "purge", admin.ID, "")
	assert.Error(t, err)
}
