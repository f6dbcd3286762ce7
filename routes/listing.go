package routes

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"servicematch-server/database"
	"servicematch-server/models"
)

// RegisterCategoryRoutes registers public category browsing routes
func RegisterCategoryRoutes(router *gin.RouterGroup) {
	router.GET("/categories", func(c *gin.Context) {
		var categories []models.Category
		if err := database.DB.
			Where("is_active = ?", true).
			Order("sort_order ASC, name ASC").
			Find(&categories).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to fetch categories",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"categories": categories,
		})
	})
}

// RegisterListingRoutes registers public listing browsing routes
func RegisterListingRoutes(router *gin.RouterGroup) {
	listings := router.Group("/listings")
	{
		listings.GET("", getListings)
		listings.GET("/:id", getListing)
	}
}

// RegisterProviderListingRoutes registers listing management routes for
// providers. Must be mounted behind AuthMiddleware.
func RegisterProviderListingRoutes(router *gin.RouterGroup) {
	listings := router.Group("/listings")
	{
		listings.GET("/mine", getMyListings)
		listings.POST("", createListing)
		listings.PUT("/:id", updateListing)
		listings.DELETE("/:id", deleteListing)
	}
}

func getListings(c *gin.Context) {
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	query := database.DB.
		Preload("Provider").
		Preload("Category").
		Where("is_active = ?", true)

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if providerID := c.Query("provider_id"); providerID != "" {
		query = query.Where("provider_id = ?", providerID)
	}
	if search := c.Query("q"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

	var listings []models.Listing
	if err := query.Order("created_at DESC").Limit(limit).Find(&listings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch listings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"listings": listings,
	})
}

func getListing(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid listing ID",
		})
		return
	}

	var listing models.Listing
	if err := database.DB.Preload("Provider").Preload("Category").First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Listing not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch listing",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"listing": listing,
	})
}

func getMyListings(c *gin.Context) {
	userID := c.GetUint("user_id")

	var listings []models.Listing
	if err := database.DB.
		Preload("Category").
		Where("provider_id = ?", userID).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch listings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"listings": listings,
	})
}

func createListing(c *gin.Context) {
	userID := c.GetUint("user_id")

	userValue, _ := c.Get("user")
	user := userValue.(models.User)
	if !user.IsProvider() && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Only providers can create listings",
		})
		return
	}

	var req models.ListingCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	var category models.Category
	if err := database.DB.First(&category, req.CategoryID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Unknown category",
		})
		return
	}

	feeType := models.FeeTypePercent
	if req.CancellationFeeType == string(models.FeeTypeFixed) {
		feeType = models.FeeTypeFixed
	}

	cutoff := req.CancellationCutoffHours
	if cutoff <= 0 {
		cutoff = 24
	}

	listing := models.Listing{
		ProviderID:              userID,
		CategoryID:              req.CategoryID,
		Title:                   req.Title,
		Description:             req.Description,
		Price:                   req.Price,
		PriceUnit:               req.PriceUnit,
		ImageURL:                req.ImageURL,
		IsActive:                true,
		CancellationCutoffHours: cutoff,
		CancellationFeeType:     feeType,
		CancellationFeeAmount:   req.CancellationFeeAmount,
	}

	if err := database.DB.Create(&listing).Error; err != nil {
		log.Printf("❌ Listing creation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create listing",
		})
		return
	}

	database.DB.Preload("Provider").Preload("Category").First(&listing, listing.ID)

	log.Printf("✅ Listing %d created by provider %d", listing.ID, userID)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Listing created successfully",
		"listing": listing,
	})
}

func updateListing(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid listing ID",
		})
		return
	}

	var listing models.Listing
	if err := database.DB.First(&listing, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Listing not found",
		})
		return
	}

	if listing.ProviderID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You can only update your own listings",
		})
		return
	}

	var req models.ListingCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	listing.CategoryID = req.CategoryID
	listing.Title = req.Title
	listing.Description = req.Description
	listing.Price = req.Price
	listing.PriceUnit = req.PriceUnit
	if req.ImageURL != "" {
		listing.ImageURL = req.ImageURL
	}
	if req.CancellationCutoffHours > 0 {
		listing.CancellationCutoffHours = req.CancellationCutoffHours
	}
	if req.CancellationFeeType != "" {
		listing.CancellationFeeType = models.CancellationFeeType(req.CancellationFeeType)
	}
	listing.CancellationFeeAmount = req.CancellationFeeAmount

	// Existing bookings keep their policy snapshot; only future bookings see
	// the edited policy.
	if err := database.DB.Save(&listing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update listing",
		})
		return
	}

	database.DB.Preload("Provider").Preload("Category").First(&listing, listing.ID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Listing updated successfully",
		"listing": listing,
	})
}

func deleteListing(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid listing ID",
		})
		return
	}

	var listing models.Listing
	if err := database.DB.First(&listing, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Listing not found",
		})
		return
	}

	if listing.ProviderID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You can only delete your own listings",
		})
		return
	}

	// Soft delete keeps existing matches and bookings resolvable
	if err := database.DB.Delete(&listing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete listing",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Listing deleted successfully",
	})
}
