package handlers

import (
	"context"
	"net/http"

	"natours/internal/domain"
	"natours/internal/query"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const msgPageMissing = "This page does not exist"

// Store is the data access a Resource needs. repositories.Collection
// implements it.
type Store[T any] interface {
	Name() string
	Plural() string
	New() T
	Find(ctx context.Context, s query.Spec) ([]T, error)
	Count(ctx context.Context, s query.Spec) (int, error)
	FindByID(ctx context.Context, id domain.ID, populate ...string) (T, error)
	Insert(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id domain.ID, v T) (T, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Hooks run after a confirmed write. A failing hook is logged and does not
// undo the write.
type Hooks[T any] interface {
	AfterCreate(ctx context.Context, v T) error
	AfterUpdate(ctx context.Context, before, after T) error
	AfterDelete(ctx context.Context, v T) error
}

// Resource serves the five CRUD endpoints of one resource.
type Resource[T any] struct {
	Store Store[T]
	// Populate names the eager loads of GetOne.
	Populate []string
	Hooks    Hooks[T]
	Log      zerolog.Logger
}

func NewResource[T any](store Store[T], log zerolog.Logger) *Resource[T] {
	return &Resource[T]{Store: store, Log: log}
}

func (r *Resource[T]) GetAll(c *gin.Context) error {
	ctx := c.Request.Context()
	spec := query.Parse(c.Request.URL.Query())

	if spec.ChecksPageExists() && spec.OutOfRange() {
		return domain.ValidationError{Msg: msgPageMissing}
	}
	if spec.ChecksPageExists() && spec.Skip() > 0 {
		n, err := r.Store.Count(ctx, spec)
		if err != nil {
			return err
		}
		if spec.Skip() >= n {
			return domain.ValidationError{Msg: msgPageMissing}
		}
	}

	items, err := r.Store.Find(ctx, spec)
	if err != nil {
		return err
	}
	out, err := query.Project(items, spec)
	if err != nil {
		return err
	}
	respondList(c, r.Store.Plural(), out, len(out))
	return nil
}

func (r *Resource[T]) GetOne(c *gin.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	v, err := r.Store.FindByID(c.Request.Context(), id, r.Populate...)
	if err != nil {
		return err
	}
	respondOne(c, http.StatusOK, r.Store.Name(), v)
	return nil
}

func (r *Resource[T]) CreateOne(c *gin.Context) error {
	ctx := c.Request.Context()
	v := r.Store.New()
	if err := decodeBody(c, &v); err != nil {
		return err
	}
	saved, err := r.Store.Insert(ctx, v)
	if err != nil {
		return err
	}
	if r.Hooks != nil {
		r.logHook("create", r.Hooks.AfterCreate(ctx, saved))
	}
	respondOne(c, http.StatusCreated, r.Store.Name(), saved)
	return nil
}

// UpdateOne overlays the body onto the stored record, so repeating a request
// leaves the same state.
func (r *Resource[T]) UpdateOne(c *gin.Context) error {
	ctx := c.Request.Context()
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	before, err := r.Store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	after, err := r.Store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := decodeBody(c, &after); err != nil {
		return err
	}
	saved, err := r.Store.Update(ctx, id, after)
	if err != nil {
		return err
	}
	if r.Hooks != nil {
		r.logHook("update", r.Hooks.AfterUpdate(ctx, before, saved))
	}
	respondOne(c, http.StatusOK, r.Store.Name(), saved)
	return nil
}

func (r *Resource[T]) DeleteOne(c *gin.Context) error {
	ctx := c.Request.Context()
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var before T
	if r.Hooks != nil {
		if before, err = r.Store.FindByID(ctx, id); err != nil {
			return err
		}
	}
	if err := r.Store.Delete(ctx, id); err != nil {
		return err
	}
	if r.Hooks != nil {
		r.logHook("delete", r.Hooks.AfterDelete(ctx, before))
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (r *Resource[T]) logHook(op string, err error) {
	if err == nil {
		return
	}
	r.Log.Error().Err(err).Str("resource", r.Store.Name()).Str("op", op).Msg("post-write hook failed")
}
