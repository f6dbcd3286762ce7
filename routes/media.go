package routes

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"servicematch-server/database"
	"servicematch-server/models"
)

// RegisterMediaRoutes registers image upload endpoints. Must be mounted
// behind AuthMiddleware.
func RegisterMediaRoutes(router *gin.RouterGroup) {
	// Upload a listing photo
	router.POST("/listings/:id/photo", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid listing ID"})
			return
		}

		var listing models.Listing
		if err := database.DB.First(&listing, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Listing not found"})
			return
		}
		if listing.ProviderID != userID {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You can only update your own listings"})
			return
		}

		if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid form data"})
			return
		}

		header, err := c.FormFile("photo")
		if err != nil || !validateImageFile(header) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A jpg, png or webp image up to 5MB is required"})
			return
		}

		url, err := uploadToCloudinary(header, fmt.Sprintf("listings/%d", listing.ID))
		if err != nil {
			log.Printf("❌ Listing photo upload failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Photo upload failed"})
			return
		}

		if err := database.DB.Model(&listing).Update("image_url", url).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save photo"})
			return
		}

		log.Printf("✅ Listing %d photo updated", listing.ID)

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"image_url": url,
		})
	})

	// Upload a profile picture
	router.POST("/me/photo", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid form data"})
			return
		}

		header, err := c.FormFile("photo")
		if err != nil || !validateImageFile(header) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A jpg, png or webp image up to 5MB is required"})
			return
		}

		url, err := uploadToCloudinary(header, fmt.Sprintf("users/%d", userID))
		if err != nil {
			log.Printf("❌ Profile photo upload failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Photo upload failed"})
			return
		}

		if err := database.DB.Model(&models.User{}).Where("id = ?", userID).
			Update("profile_picture_url", url).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save photo"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":             true,
			"profile_picture_url": url,
		})
	})
}
