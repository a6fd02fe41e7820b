package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

func ParseFloat(s string) float64 {
	val, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return val
}

func ParseInt(s string) int {
	val, _ := strconv.Atoi(strings.TrimSpace(s))
	return val
}

func ParseDate(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// SaveUploadedImage stores the upload under static/uploads/<subdir> and
// writes a 320px thumbnail next to it.
func SaveUploadedImage(file multipart.File, header *multipart.FileHeader, subdir string) (string, error) {
	img, err := imaging.Decode(file)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	filename := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	dstPath := filepath.Join("static", "uploads", subdir, filename)
	thumbPath := filepath.Join("static", "uploads", subdir, "thumb_"+filename)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return "", err
	}
	if err := imaging.Save(img, dstPath); err != nil {
		return "", err
	}
	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return "", err
	}
	return "/uploads/" + subdir + "/" + filename, nil
}
