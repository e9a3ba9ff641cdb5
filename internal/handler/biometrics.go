package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/biometric"
	"smartattendance/internal/enrollment"
)

type enrollRequest struct {
	UserUUID            string               `json:"user_uuid"`
	FingerprintTemplate string               `json:"fingerprint_template"`
	FaceTemplate        biometric.FaceVector `json:"face_template"`
}

// EnrollBiometric stores a face and/or fingerprint template for a user.
func (h *Handler) EnrollBiometric(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid biometric payload")
		return
	}
	if req.UserUUID == "" {
		badRequest(c, "Missing user_uuid")
		return
	}
	fingerprint, err := biometric.DecodeFingerprint(req.FingerprintTemplate)
	if err != nil {
		badRequest(c, "Invalid fingerprint template")
		return
	}

	ctx := c.Request.Context()
	person, err := h.People.UserByUUID(ctx, req.UserUUID)
	if err != nil {
		h.fail(c, err)
		return
	}
	tpl, err := h.Templates.Enroll(ctx, person.ID, req.FaceTemplate, fingerprint)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Log.Info(ctx, "biometric enrolled", "uuid", person.UUID, "template_id", tpl.ID,
		"face", tpl.Face != nil, "fingerprint", tpl.Fingerprint != nil)

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Biometric enrollment successful", "template_id": tpl.ID})
}

type verifyRequest struct {
	Embedding biometric.FaceVector `json:"embedding"`
}

// VerifyFace identifies a face without recording attendance.
func (h *Handler) VerifyFace(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Embedding) == 0 {
		badRequest(c, "Missing embedding")
		return
	}
	res, err := h.Matcher.MatchFace(c.Request.Context(), req.Embedding)
	if err != nil {
		h.fail(c, err)
		return
	}
	switch {
	case res.Matched:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"user_uuid": res.Owner.UUID,
			"firstname": res.Owner.Firstname,
			"lastname":  res.Owner.Lastname,
			"score":     res.Score,
		})
	case res.Enrolled == 0:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No enrolled faces"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No match found"})
	}
}

type enrollImageRequest struct {
	UserUUID string `json:"user_uuid"`
	Image    string `json:"image"`
	ImageURL string `json:"image_url"`
}

// EnrollImage queues a photo for asynchronous face enrollment. The photo is
// sent as JSON (base64 data URL or public URL) or as a multipart "file". When
// Cloudinary is configured uploaded photos are stored there first.
func (h *Handler) EnrollImage(c *gin.Context) {
	if h.Queue == nil {
		unavailable(c, "enrollment queue not configured")
		return
	}
	ctx := c.Request.Context()

	var (
		req  enrollImageRequest
		file []byte
		name string
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		req.UserUUID = c.PostForm("user_uuid")
		f, header, err := c.Request.FormFile("file")
		if err != nil {
			badRequest(c, "file field required")
			return
		}
		defer f.Close()
		if file, err = io.ReadAll(f); err != nil {
			h.fail(c, err)
			return
		}
		name = header.Filename
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON")
		return
	}
	if req.UserUUID == "" {
		badRequest(c, "Missing user_uuid")
		return
	}
	if file == nil && req.Image == "" && req.ImageURL == "" {
		badRequest(c, "image, image_url or file is required")
		return
	}

	person, err := h.People.UserByUUID(ctx, req.UserUUID)
	if err != nil {
		h.fail(c, err)
		return
	}

	job := enrollment.FaceJob{UserUUID: person.UUID, ImageURL: req.ImageURL}
	if job.ImageURL == "" {
		if job.ImageURL, job.ImageB64, err = h.stage(c, req.Image, file, name); err != nil {
			h.Log.Error(ctx, "image upload failed", "uuid", person.UUID, "err", err)
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "image upload failed"})
			return
		}
	}

	id, err := enrollment.Submit(ctx, h.Queue, job)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"message":   "Enrollment queued",
		"job_id":    id,
		"image_url": optional(job.ImageURL),
	})
}

// stage uploads the photo when an uploader is configured. Otherwise the
// image travels inline in the job as bare base64.
func (h *Handler) stage(c *gin.Context, dataURL string, file []byte, name string) (url, b64 string, err error) {
	ctx := c.Request.Context()
	if h.Uploader == nil {
		if file != nil {
			return "", base64.StdEncoding.EncodeToString(file), nil
		}
		return "", stripDataURL(dataURL), nil
	}

	if file != nil {
		res, err := h.Uploader.UploadBytes(ctx, file, name)
		if err != nil {
			return "", "", err
		}
		return res.SecureURL, "", nil
	}
	res, err := h.Uploader.UploadBase64(ctx, dataURL)
	if err != nil {
		return "", "", err
	}
	if res.SecureURL == "" {
		return "", "", errors.New("upload returned no url")
	}
	return res.SecureURL, "", nil
}

func stripDataURL(s string) string {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}
