package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"natours/internal/domain"
	"natours/internal/domain/models"
	"natours/internal/http/middleware"
	"natours/internal/services"

	"github.com/gin-gonic/gin"
)

// TopCheapPreset backs /tours/top-5-cheap.
var TopCheapPreset = map[string]string{
	"limit":  "5",
	"sort":   "-ratingsAverage,price",
	"fields": "name,price,ratingsAverage,summary,difficulty",
}

// TourHandler adds reports, geo lookups and image uploads to tour CRUD.
type TourHandler struct {
	Tours   *Resource[models.Tour]
	Service services.TourService
	Images  services.ImageService
}

func (h TourHandler) Stats(c *gin.Context) error {
	stats, err := h.Service.Stats(c.Request.Context())
	if err != nil {
		return err
	}
	respondOne(c, http.StatusOK, "stats", stats)
	return nil
}

func (h TourHandler) MonthlyPlan(c *gin.Context) error {
	plan, err := h.Service.MonthlyPlan(c.Request.Context(), c.Param("year"))
	if err != nil {
		return err
	}
	respondOne(c, http.StatusOK, "plan", plan)
	return nil
}

func (h TourHandler) Within(c *gin.Context) error {
	tours, err := h.Service.Within(c.Request.Context(), c.Param("distance"), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		return err
	}
	respondList(c, "data", tours, len(tours))
	return nil
}

func (h TourHandler) Distances(c *gin.Context) error {
	distances, err := h.Service.Distances(c.Request.Context(), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		return err
	}
	respondOne(c, http.StatusOK, "data", distances)
	return nil
}

// UploadImages resizes a multipart imageCover plus images and records the
// file names in the body for UpdateOne. Requests without both are passed on.
func (h TourHandler) UploadImages(c *gin.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	covers, images := form.File["imageCover"], form.File["images"]
	if len(covers) == 0 || len(images) == 0 {
		return nil
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	cover, err := covers[0].Open()
	if err != nil {
		return domain.ValidationError{Msg: "Could not read uploaded image", Err: err}
	}
	defer cover.Close()

	if len(images) > services.MaxTourImages {
		images = images[:services.MaxTourImages]
	}
	readers := make([]io.Reader, 0, len(images))
	for _, fh := range images {
		f, err := openUpload(fh)
		if err != nil {
			return err
		}
		defer f.Close()
		readers = append(readers, f)
	}

	coverName, names, err := h.Images.TourImages(id, cover, readers)
	if err != nil {
		return err
	}
	body := middleware.Body(c)
	body["imageCover"] = coverName
	gallery := make([]any, len(names))
	for i, n := range names {
		gallery[i] = n
	}
	body["images"] = gallery
	return nil
}

func openUpload(fh *multipart.FileHeader) (multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, domain.ValidationError{Msg: "Could not read uploaded image", Err: err}
	}
	return f, nil
}
