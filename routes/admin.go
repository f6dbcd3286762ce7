package routes

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"servicematch-server/database"
	"servicematch-server/models"
)

// RegisterAdminRoutes registers the admin surface. Must be mounted behind
// AuthMiddleware plus RequireRole(admin).
func RegisterAdminRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard/stats", getDashboardStats)
	router.GET("/users", getAllUsers)
	router.PATCH("/users/:id/status", updateUserStatus)
}

func getDashboardStats(c *gin.Context) {
	var userCount, providerCount, listingCount, matchCount, bookingCount, completedCount int64

	database.DB.Model(&models.User{}).Count(&userCount)
	database.DB.Model(&models.User{}).Where("role = ?", models.RoleProvider).Count(&providerCount)
	database.DB.Model(&models.Listing{}).Where("is_active = ?", true).Count(&listingCount)
	database.DB.Model(&models.Match{}).Count(&matchCount)
	database.DB.Model(&models.Booking{}).Count(&bookingCount)
	database.DB.Model(&models.Booking{}).Where("status = ?", models.BookingStatusCompleted).Count(&completedCount)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"total_users":        userCount,
			"total_providers":    providerCount,
			"active_listings":    listingCount,
			"total_matches":      matchCount,
			"total_bookings":     bookingCount,
			"completed_bookings": completedCount,
		},
	})
}

func getAllUsers(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	query := database.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
	})
}

func updateUserStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid user ID",
		})
		return
	}

	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	result := database.DB.Model(&models.User{}).Where("id = ?", id).Update("is_active", *req.IsActive)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update user",
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "User not found",
		})
		return
	}

	log.Printf("🛡️ Admin set user %d active=%v", id, *req.IsActive)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User status updated",
	})
}
