package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quickclicks/board/middleware"
	"github.com/quickclicks/board/store"
	"github.com/quickclicks/board/utils"
)

// CommentController serves replies inside a thread.
type CommentController struct {
	content *store.ContentStore
}

func NewCommentController(content *store.ContentStore) *CommentController {
	return &CommentController{content: content}
}

// CreateComment posts a reply, optionally nested under a parent comment
// and optionally anonymous. The lock check runs in middleware before this
// handler is reached.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	threadID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid thread id")
		return
	}

	var req struct {
		Body      string `json:"body" binding:"required"`
		ParentID  *uint  `json:"parent_id"`
		Anonymous bool   `json:"anonymous"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.FailValidation(ctx, "invalid comment payload")
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}
	name, _ := ctx.Get(middleware.ContextUserNameKey)
	authorName, _ := name.(string)

	comment, err := c.content.CreateComment(store.NewCommentInput{
		ThreadID:    uint(threadID),
		ParentID:    req.ParentID,
		Body:        utils.Sanitize(req.Body),
		AuthorID:    userID,
		AuthorName:  authorName,
		IsAnonymous: req.Anonymous,
	})
	if err != nil {
		failStoreError(ctx, err, "failed to create comment")
		return
	}

	utils.InvalidateByPrefix(threadListCacheKey)
	comment.AuthorDisplay = comment.DisplayName()
	utils.Success(ctx, gin.H{"comment": comment})
}

// ToggleUpvote adds or removes the caller's upvote on a comment.
func (c *CommentController) ToggleUpvote(ctx *gin.Context) {
	commentID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.FailValidation(ctx, "invalid comment id")
		return
	}
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.FailUnauthenticated(ctx, "not authenticated")
		return
	}

	count, upvoted, err := c.content.ToggleCommentUpvote(uint(commentID), userID)
	if err != nil {
		failStoreError(ctx, err, "failed to toggle upvote")
		return
	}
	utils.Success(ctx, gin.H{"upvotes": count, "upvoted": upvoted})
}
