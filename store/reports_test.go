package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickclicks/board/models"
)

func TestCreateReportTargetMustExist(t *testing.T) {
	db := openTestDB(t)
	reporter := seedUser(t, db, "alice", models.RoleUser, false)
	thread := seedThread(t, db, reporter, "t")
	reports := NewReportStore(db)

	report, err := reports.CreateReport(NewReportInput{
		TargetType: models.TargetThread,
		TargetID:   thread.ID,
		ReporterID: reporter.ID,
		Category:   "spam",
		Reason:     "looks automated",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, report.Status)

	_, err = reports.CreateReport(NewReportInput{
		TargetType: models.TargetThread,
		TargetID:   9999,
		ReporterID: reporter.ID,
		Category:   "spam",
		Reason:     "x",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reports.CreateReport(NewReportInput{
		TargetType: "widget",
		TargetID:   thread.ID,
		ReporterID: reporter.ID,
		Category:   "spam",
		Reason:     "x",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsResolvedStatusGrouping(t *testing.T) {
	assert.False(t, IsResolvedStatus("open"))
	assert.False(t, IsResolvedStatus("  OPEN "))
	assert.False(t, IsResolvedStatus(""))
	// Any other non-empty status counts as resolved, including legacy values.
	assert.True(t, IsResolvedStatus("resolved"))
	assert.True(t, IsResolvedStatus("closed"))
	assert.True(t, IsResolvedStatus("dealt-with"))
}

func TestListReportsBuckets(t *testing.T) {
	db := openTestDB(t)
	reporter := seedUser(t, db, "alice", models.RoleUser, false)
	admin := seedUser(t, db, "mod", models.RoleAdmin, false)
	thread := seedThread(t, db, reporter, "t")
	reports := NewReportStore(db)

	open, err := reports.CreateReport(NewReportInput{
		TargetType: models.TargetThread, TargetID: thread.ID,
		ReporterID: reporter.ID, Category: "spam", Reason: "a",
	})
	require.NoError(t, err)

	closed, err := reports.CreateReport(NewReportInput{
		TargetType: models.TargetThread, TargetID: thread.ID,
		ReporterID: reporter.ID, Category: "abuse", Reason: "b",
	})
	require.NoError(t, err)
	_, err = reports.Resolve(closed.ID, admin.ID, "closed", "handled")
	require.NoError(t, err)

	openBucket, err := reports.ListReports(true, false)
	require.NoError(t, err)
	require.Len(t, openBucket, 1)
	assert.Equal(t, open.ID, openBucket[0].ID)

	resolvedBucket, err := reports.ListReports(false, true)
	require.NoError(t, err)
	require.Len(t, resolvedBucket, 1)
	assert.Equal(t, closed.ID, resolvedBucket[0].ID)

	all, err := reports.ListReports(false, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestResolveStampsReport(t *testing.T) {
	db := openTestDB(t)
	reporter := seedUser(t, db, "alice", models.RoleUser, false)
	admin := seedUser(t, db, "mod", models.RoleAdmin, false)
	thread := seedThread(t, db, reporter, "t")
	reports := NewReportStore(db)

	report, err := reports.CreateReport(NewReportInput{
		TargetType: models.TargetThread, TargetID: thread.ID,
		ReporterID: reporter.ID, Category: "spam", Reason: "a",
	})
	require.NoError(t, err)

	resolved, err := reports.Resolve(report.ID, admin.ID, "", "taken down")
	require.NoError(t, err)
	assert.Equal(t, "resolved", resolved.Status)
	assert.Equal(t, "taken down", resolved.ResolutionNote)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, admin.ID, *resolved.ResolvedByID)
}

func TestBulkResolveReportsPreviouslyOpen(t *testing.T) {
	db := openTestDB(t)
	reporter := seedUser(t, db, "alice", models.RoleUser, false)
	admin := seedUser(t, db, "mod", models.RoleAdmin, false)
	thread := seedThread(t, db, reporter, "t")
	reports := NewReportStore(db)

	var ids []uint
	for i := 0; i < 3; i++ {
		report, err := reports.CreateReport(NewReportInput{
			TargetType: models.TargetThread, TargetID: thread.ID,
			ReporterID: reporter.ID, Category: "spam", Reason: "r",
		})
		require.NoError(t, err)
		ids = append(ids, report.ID)
	}
	_, err := reports.Resolve(ids[0], admin.ID, "closed", "")
	require.NoError(t, err)

	openIDs, err := reports.BulkResolve(ids, admin.ID, "", "sweep")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{ids[1], ids[2]}, openIDs)

	remaining, err := reports.ListReports(true, false)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
