package routes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"

	"servicematch-server/models"
	"servicematch-server/services"
	ws "servicematch-server/websocket"
)

// respondServiceError maps service-layer sentinels onto HTTP responses
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTargetNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Resource not found",
		})
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You are not a participant of this match",
		})
	case errors.Is(err, services.ErrProposalNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Proposal not found or not of the requested type",
		})
	case errors.Is(err, services.ErrSelfMatchNotAllowed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": "You cannot match with yourself",
		})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "This action is not allowed in the current state",
		})
	case errors.Is(err, services.ErrIncompleteNegotiation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": "Negotiation must settle both a price and a date first",
		})
	default:
		log.Printf("❌ Unhandled service error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Something went wrong",
		})
	}
}

func matchIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid match ID",
		})
		return 0, false
	}
	return uint(id), true
}

// RegisterMatchRoutes registers match and chat thread routes. Must be mounted
// behind AuthMiddleware.
func RegisterMatchRoutes(router *gin.RouterGroup, matches *services.MatchService, negotiations *services.NegotiationService) {
	group := router.Group("/matches")

	// Conversation list, most recently active first
	group.GET("", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		list, err := matches.ListForUser(userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"matches": list,
		})
	})

	group.GET("/:id", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		match, err := matches.FindForUser(matchID, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"match":   match,
		})
	})

	// Direct match shortcut: open a thread with another user without the
	// reciprocal-swipe dance
	group.POST("/direct", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			UserID uint `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		match, created, err := matches.GetOrCreateDirectMatch(userID, req.UserID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"success": true,
			"match":   match,
			"created": created,
		})
	})

	// Listing-scoped variant of the shortcut
	group.POST("/listing", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			ListingID uint `json:"listing_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		match, created, err := matches.GetOrCreateMatchForListing(userID, req.ListingID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"success": true,
			"match":   match,
			"created": created,
		})
	})

	// Thread messages, ascending by creation time
	group.GET("/:id/messages", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		messages, total, err := negotiations.Messages(matchID, userID, page, limit)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"messages": messages,
			"total":    total,
			"page":     page,
		})
	})

	// Send a plain or image message
	group.POST("/:id/messages", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Content  string `json:"content"`
			ImageURL string `json:"image_url" binding:"omitempty,url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		mtype := models.MessageTypeText
		meta := models.MessageMetadata{}
		if req.ImageURL != "" {
			mtype = models.MessageTypeImage
			meta.ImageURL = req.ImageURL
			if req.Content == "" {
				req.Content = "📷 Photo"
			}
		}

		message, err := negotiations.SendMessage(matchID, userID, req.Content, mtype, meta)
		if err != nil {
			if errors.Is(err, services.ErrTargetNotFound) || errors.Is(err, services.ErrAccessDenied) ||
				errors.Is(err, services.ErrInvalidTransition) {
				respondServiceError(c, err)
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data":    message,
		})
	})

	// Send a structured price or date proposal
	group.POST("/:id/proposals", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Type  string     `json:"type" binding:"required,oneof=price date"`
			Price *float64   `json:"price" binding:"omitempty,gt=0"`
			Date  *time.Time `json:"date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		message, err := negotiations.SendProposal(matchID, userID, models.ProposalType(req.Type), req.Price, req.Date)
		if err != nil {
			if errors.Is(err, services.ErrTargetNotFound) || errors.Is(err, services.ErrAccessDenied) ||
				errors.Is(err, services.ErrInvalidTransition) {
				respondServiceError(c, err)
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data":    message,
		})
	})

	// Accept a proposal, applying its value onto the match
	group.POST("/:id/proposals/:messageId/accept", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid message ID",
			})
			return
		}

		var req struct {
			Type string `json:"type" binding:"required,oneof=price date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		match, err := negotiations.AcceptProposal(matchID, uint(messageID), userID, models.ProposalType(req.Type))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"match":   match,
		})
	})

	// Decline a proposal. Recorded in the thread, match untouched.
	group.POST("/:id/proposals/:messageId/decline", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid message ID",
			})
			return
		}

		var req struct {
			Type string `json:"type" binding:"required,oneof=price date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		message, err := negotiations.DeclineProposal(matchID, uint(messageID), userID, models.ProposalType(req.Type))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    message,
		})
	})

	// Mark the counterpart's messages as read
	group.POST("/:id/read", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		if err := negotiations.MarkThreadRead(matchID, userID); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Messages marked as read",
		})
	})

	// Upload a chat image to Cloudinary and send it as a message
	group.POST("/:id/images", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		matchID, ok := matchIDParam(c)
		if !ok {
			return
		}

		if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid form data",
			})
			return
		}

		header, err := c.FormFile("image")
		if err != nil || !validateImageFile(header) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "A jpg, png or webp image up to 5MB is required",
			})
			return
		}

		url, err := uploadToCloudinary(header, fmt.Sprintf("matches/%d/images", matchID))
		if err != nil {
			log.Printf("❌ Chat image upload failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Image upload failed",
			})
			return
		}

		message, err := negotiations.SendMessage(matchID, userID, "📷 Photo",
			models.MessageTypeImage, models.MessageMetadata{ImageURL: url})
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data":    message,
		})
	})
}

// RegisterWebSocketRoute registers the realtime endpoint. The connecting user
// is joined to all their match threads so thread events reach them directly.
func RegisterWebSocketRoute(router *gin.RouterGroup, hub *ws.Hub, matches *services.MatchService) {
	router.GET("/ws", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		userValue, _ := c.Get("user")
		user := userValue.(models.User)

		if list, err := matches.ListForUser(userID); err == nil {
			for _, m := range list {
				hub.AddUserToThread(userID, m.ID)
			}
		}

		ws.ServeWebSocket(hub, c.Writer, c.Request, userID, string(user.Role))
	})
}

// validateImageFile validates mimetype and size (<= 5MB)
func validateImageFile(h *multipart.FileHeader) bool {
	if h == nil || h.Size <= 0 || h.Size > 5*1024*1024 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(h.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}

// uploadToCloudinary pushes a multipart image into the given folder and
// returns its public URL
func uploadToCloudinary(header *multipart.FileHeader, folder string) (string, error) {
	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return "", errors.New("cloudinary not configured")
	}

	cld, err := cloudinary.NewFromURL(fmt.Sprintf("cloudinary://%s:%s@%s", apiKey, apiSecret, cloudName))
	if err != nil {
		return "", err
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	overwrite := true
	unique := true
	up, err := cld.Upload.Upload(context.Background(), file, uploader.UploadParams{
		Folder:         folder,
		PublicID:       strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename)),
		Overwrite:      &overwrite,
		UniqueFilename: &unique,
		ResourceType:   "image",
	})
	if err != nil {
		return "", err
	}
	return up.SecureURL, nil
}
