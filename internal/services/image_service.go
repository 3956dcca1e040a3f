package services

import (
	"fmt"
	"io"
	"time"

	"natours/internal/domain"
)

const (
	tourImageDir = "img/tours"
	userImageDir = "img/users"

	MaxTourImages = 3
)

// ImageStore crops and persists a picture.
type ImageStore interface {
	SaveJPEG(src io.Reader, width, height int, sub, name string) error
}

// ImageService names and sizes uploaded pictures.
type ImageService struct {
	Store ImageStore
	Now   func() time.Time
}

func (s ImageService) stamp() int64 {
	if s.Now != nil {
		return s.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// TourImages stores a 2000x1333 cover and up to three gallery pictures.
func (s ImageService) TourImages(tourID domain.ID, cover io.Reader, images []io.Reader) (string, []string, error) {
	ts := s.stamp()
	coverName := fmt.Sprintf("tour-%d-%d-cover.jpeg", tourID, ts)
	if err := s.Store.SaveJPEG(cover, 2000, 1333, tourImageDir, coverName); err != nil {
		return "", nil, err
	}
	if len(images) > MaxTourImages {
		images = images[:MaxTourImages]
	}
	names := make([]string, 0, len(images))
	for i, img := range images {
		name := fmt.Sprintf("tour-%d-%d-%d.jpeg", tourID, ts, i+1)
		if err := s.Store.SaveJPEG(img, 2000, 1333, tourImageDir, name); err != nil {
			return "", nil, err
		}
		names = append(names, name)
	}
	return coverName, names, nil
}

// UserPhoto stores a 500x500 avatar.
func (s ImageService) UserPhoto(userID domain.ID, src io.Reader) (string, error) {
	name := fmt.Sprintf("user-%d-%d.jpeg", userID, s.stamp())
	if err := s.Store.SaveJPEG(src, 500, 500, userImageDir, name); err != nil {
		return "", err
	}
	return name, nil
}
