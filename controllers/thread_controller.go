package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/models"
	"github.com/quickclicks/board/store"
	"github.com/quickclicks/board/utils"
)

const threadListCacheKey = "cache:threads:list"

// ThreadController serves the public thread surface.
type ThreadController struct {
	content *store.ContentStore
}

func NewThreadController(content *store.ContentStore) *ThreadController {
	return &ThreadController{content: content}
}

// ListThreads returns all visible threads, pinned first then newest then
// most upvoted. Admins may pass include_deleted=1 to see removed threads.
func (t *ThreadController) ListThreads(ctx *gin.Context) {
	includeDeleted := middleware.IsAdmin(ctx) && ctx.Query("include_deleted") == "1"

	if !includeDeleted {
		if cached, ok := utils.CacheGetBytes(threadListCacheKey); ok {
			ctx.Data(200, "application/json", cached)
			return
		}
	}

	threads, err := t.content.ListThreads(includeDeleted)
	if err != nil {
		utils.FailInternal(ctx, "failed to list threads")
		return
	}
	for i := range threads {
		threads[i].AuthorDisplay = threads[i].DisplayName()
	}

	if !includeDeleted {
		utils.CacheSetJSON(threadListCacheKey, utils.JSONResponse{
			Code:    0,
			Message: "success",
			Data:    gin.H{"threads": threads},
		}, 0)
	}
	utils.Success(ctx, gin.H{"threads": threads})
}

// GetThread returns one thread with its full comment tree. Deleted
// comments are absent from the public view, so replies under them are
// promoted to root by the tree builder.
func (t *ThreadController) GetThread(ctx *gin.Context) {
	threadID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid thread id")
		return
	}
	includeDeleted := middleware.IsAdmin(ctx) && ctx.Query("include_deleted") == "1"

	thread, err := t.content.GetThread(uint(threadID), includeDeleted)
	if err != nil {
		utils.FailNotFound(ctx, "thread not found")
		return
	}
	thread.AuthorDisplay = thread.DisplayName()

	comments, err := t.content.ListComments(thread.ID, includeDeleted)
	if err != nil {
		utils.FailInternal(ctx, "failed to load comments")
		return
	}
	for i := range comments {
		comments[i].AuthorDisplay = comments[i].DisplayName()
	}
	tree := models.BuildCommentTree(comments)
	models.SortCommentTree(tree)
	thread.CommentCount = int64(models.CountTreeNodes(tree))

	utils.Success(ctx, gin.H{"thread": thread, "comments": tree})
}

// CreateThread starts a new discussion, optionally anonymous.
func (t *ThreadController) CreateThread(ctx *gin.Context) {
	var req struct {
		Title     string `json:"title" binding:"required,min=1,max=200"`
		Body      string `json:"body" binding:"required"`
		Anonymous bool   `json:"anonymous"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid thread payload")
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}
	name, _ := ctx.Get(middleware.ContextUserNameKey)
	authorName, _ := name.(string)

	thread, err := t.content.CreateThread(store.NewThreadInput{
		Title:       utils.Sanitize(strings.TrimSpace(req.Title)),
		Body:        utils.Sanitize(req.Body),
		AuthorID:    userID,
		AuthorName:  authorName,
		IsAnonymous: req.Anonymous,
	})
	if err != nil {
		failStoreError(ctx, err, "failed to create thread")
		return
	}

	utils.InvalidateByPrefix(threadListCacheKey)
	thread.AuthorDisplay = thread.DisplayName()
	utils.Success(ctx, gin.H{"thread": thread})
}

// ToggleUpvote adds or removes the caller's upvote on a thread.
func (t *ThreadController) ToggleUpvote(ctx *gin.Context) {
	threadID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid thread id")
		return
	}
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}

	count, upvoted, err := t.content.ToggleThreadUpvote(uint(threadID), userID)
	if err != nil {
		failStoreError(ctx, err, "failed to toggle upvote")
		return
	}
	utils.InvalidateByPrefix(threadListCacheKey)
	utils.Success(ctx, gin.H{"upvotes": count, "upvoted": upvoted})
}

// failStoreError maps store sentinels onto the response taxonomy.
func failStoreError(ctx *gin.Context, err error, fallback string) {
	switch {
	case err == store.ErrNotFound:
		utils.FailNotFound(ctx, "not found")
	case err == store.ErrAuthorBanned:
		utils.FailAuthorization(ctx, "account is banned from posting")
	case err == store.ErrBadParent:
		utils.FailValidation(ctx, "parent comment does not belong to this thread")
	case err == store.ErrThreadLocked:
		utils.FailLocked(ctx, "thread is locked")
	default:
		utils.FailInternal(ctx, fallback)
	}
}
