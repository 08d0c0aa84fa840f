package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/verdant/internal/assets"
	"github.com/example/verdant/internal/auth"
	"github.com/example/verdant/internal/imaging"
	"github.com/example/verdant/internal/inference"
	"github.com/example/verdant/internal/repository"
	"github.com/example/verdant/internal/usecase"
)

// MaxUploadSize bounds incoming image uploads.
const MaxUploadSize = 10 << 20

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Identifier is the identification capability the routes depend on.
type Identifier interface {
	Identify(ctx context.Context, photoURL, contentType string) (*inference.Identification, error)
}

// Deps collects the collaborators the routes are wired to.
type Deps struct {
	Identifier Identifier
	Garden     *usecase.GardenUseCase
	Assets     *assets.Lifecycle
	Normalizer *imaging.Normalizer
}

type identifyRequest struct {
	PhotoURL    string `json:"photoUrl"`
	ContentType string `json:"contentType"`
}

type uploadJSONRequest struct {
	Data    string `json:"data"`
	BlobURL string `json:"blobUrl"`
	Folder  string `json:"folder"`
}

type addPlantRequest struct {
	CommonName     string `json:"commonName"`
	ScientificName string `json:"scientificName"`
	ImageURL       string `json:"imageUrl"`
	ImagePublicID  string `json:"imagePublicId"`
	Notes          string `json:"notes"`
}

type scheduleReminderRequest struct {
	Kind  string    `json:"kind"`
	DueAt time.Time `json:"dueAt"`
}

// RegisterRoutes wires the HTTP surface to the gin router.
func RegisterRoutes(router *gin.Engine, deps Deps, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/identify", func(c *gin.Context) {
		var req identifyRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PhotoURL) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photoUrl is required"})
			return
		}

		result, err := deps.Identifier.Identify(c.Request.Context(), req.PhotoURL, req.ContentType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "failed to identify plant",
				"message": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, result)
	})

	api := router.Group("/api", authMiddleware)

	api.POST("/assets", func(c *gin.Context) {
		payload, folder, ok := readUploadPayload(c, deps.Normalizer)
		if !ok {
			return
		}

		result := deps.Assets.Upload(c.Request.Context(), payload, folder)
		if !result.Success {
			c.JSON(http.StatusBadGateway, result)
			return
		}
		c.JSON(http.StatusCreated, result)
	})

	api.DELETE("/assets/:publicId", func(c *gin.Context) {
		result := deps.Assets.Delete(c.Request.Context(), c.Param("publicId"))
		if !result.Success {
			c.JSON(http.StatusBadGateway, result)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	api.POST("/plants", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req addPlantRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CommonName) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "commonName is required"})
			return
		}

		record, err := deps.Garden.AddPlant(c.Request.Context(), userID, usecase.PlantInput{
			CommonName:     req.CommonName,
			ScientificName: req.ScientificName,
			ImageURL:       req.ImageURL,
			ImagePublicID:  req.ImagePublicID,
			Notes:          req.Notes,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add plant", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, plantResponse(record))
	})

	api.GET("/plants", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		records, err := deps.Garden.ListPlants(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list plants", "details": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(records))
		for _, record := range records {
			out = append(out, plantResponse(record))
		}
		c.JSON(http.StatusOK, gin.H{"plants": out})
	})

	api.GET("/plants/:id", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		record, err := deps.Garden.GetPlant(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "plant not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plant", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, plantResponse(record))
	})

	api.DELETE("/plants/:id", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		publicID, err := deps.Garden.RemovePlant(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "plant not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete plant", "details": err.Error()})
			return
		}

		// The record is gone either way; releasing the hosted photo is
		// best-effort and its outcome is part of the response.
		response := gin.H{"message": "plant deleted"}
		if publicID != "" {
			response["asset"] = deps.Assets.Delete(c.Request.Context(), publicID)
		}
		c.JSON(http.StatusOK, response)
	})

	api.GET("/garden/summary", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		summary, err := deps.Garden.GetGardenSummary(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, summary)
	})

	api.POST("/plants/:id/reminders", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req scheduleReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Kind == "" || req.DueAt.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind and dueAt are required"})
			return
		}

		reminder, err := deps.Garden.ScheduleReminder(c.Request.Context(), userID, c.Param("id"), req.Kind, req.DueAt)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "plant not found"})
				return
			}
			if !usecase.ReminderKinds[req.Kind] {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule reminder", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, reminderResponse(reminder))
	})

	api.GET("/reminders", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		reminders, err := deps.Garden.ListReminders(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reminders", "details": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(reminders))
		for _, reminder := range reminders {
			out = append(out, reminderResponse(reminder))
		}
		c.JSON(http.StatusOK, gin.H{"reminders": out})
	})

	api.POST("/reminders/:id/complete", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		if err := deps.Garden.CompleteReminder(c.Request.Context(), userID, c.Param("id")); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete reminder", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "reminder completed"})
	})
}

// readUploadPayload accepts either a multipart "image" file or a JSON body
// with a data URL or blob URL, and normalizes it into a DataURL. It writes
// the error response itself when the input is unusable.
func readUploadPayload(c *gin.Context, normalizer *imaging.Normalizer) (imaging.DataURL, string, bool) {
	contentType := c.ContentType()

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return "", "", false
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return "", "", false
		}
		declared := file.Header.Get("Content-Type")
		if declared != "" && !supportedImageTypes[declared] {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported image type"})
			return "", "", false
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return "", "", false
		}
		defer src.Close()

		payload, err := normalizer.FromFileHandle(imaging.FileHandle{
			Name:        file.Filename,
			ContentType: declared,
			Reader:      src,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image", "details": err.Error()})
			return "", "", false
		}
		return payload, c.PostForm("folder"), true
	}

	var req uploadJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return "", "", false
	}

	switch {
	case req.Data != "":
		if !strings.HasPrefix(req.Data, "data:") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "data must be a data URL"})
			return "", "", false
		}
		return imaging.DataURL(req.Data), req.Folder, true
	case req.BlobURL != "":
		payload, err := normalizer.FromBlobReference(c.Request.Context(), imaging.BlobReference{URL: req.BlobURL})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch image", "details": err.Error()})
			return "", "", false
		}
		return payload, req.Folder, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "data or blobUrl is required"})
		return "", "", false
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	return userID, true
}

func plantResponse(record *repository.PlantRecord) gin.H {
	return gin.H{
		"plantId":        record.PlantID,
		"commonName":     record.CommonName,
		"scientificName": record.ScientificName,
		"imageUrl":       record.ImageURL,
		"imagePublicId":  record.ImagePublicID,
		"notes":          record.Notes,
		"createdAt":      record.CreatedAt,
	}
}

func reminderResponse(reminder *repository.CareReminder) gin.H {
	return gin.H{
		"reminderId": reminder.ReminderID,
		"plantId":    reminder.PlantID,
		"kind":       reminder.Kind,
		"dueAt":      reminder.DueAt,
		"done":       reminder.Done,
	}
}
