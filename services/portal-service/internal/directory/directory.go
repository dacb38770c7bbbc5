package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/cache"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/model"
)

const (
	TagDoctors         = "doctors"
	TagSpecializations = "specializations"
)

// Source is the upstream directory, normally *medapi.Client.
type Source interface {
	ListDoctors(ctx context.Context, page, pageSize int) (model.DoctorPage, error)
	BrowseDoctors(ctx context.Context, specializationID string, page, pageSize int) (model.DoctorPage, error)
	ListSpecializations(ctx context.Context, page, pageSize int) (model.SpecializationPage, error)
}

type CacheObserver interface {
	ObserveCache(result string)
}

// Entry is a doctor as listed to patients.
type Entry struct {
	model.Doctor
	DisplayName        string `json:"displayName"`
	SpecializationName string `json:"specializationName"`
	NextAvailable      string `json:"nextAvailable"`
}

type Listing struct {
	Doctors []Entry `json:"doctors"`
	Total   int     `json:"total"`
}

type Service struct {
	source   Source
	cache    cache.Cache
	ttl      time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
	observer CacheObserver
}

type Options struct {
	TTL      time.Duration
	Location *time.Location
	Logger   *slog.Logger
	Observer CacheObserver
}

func NewService(source Source, c cache.Cache, opts Options) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		source:   source,
		cache:    c,
		ttl:      opts.TTL,
		loc:      opts.Location,
		now:      time.Now,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
}

func (s *Service) ListDoctors(ctx context.Context, page, pageSize int) (Listing, error) {
	key := fmt.Sprintf("doctors:list:%d:%d", page, pageSize)
	var p model.DoctorPage
	err := s.cached(ctx, key, TagDoctors, &p, func() (any, error) {
		return s.source.ListDoctors(ctx, page, pageSize)
	})
	if err != nil {
		return Listing{}, err
	}
	return s.listing(p), nil
}

func (s *Service) BrowseDoctors(ctx context.Context, specializationID string, page, pageSize int) (Listing, error) {
	key := fmt.Sprintf("doctors:browse:%s:%d:%d", specializationID, page, pageSize)
	var p model.DoctorPage
	err := s.cached(ctx, key, TagDoctors, &p, func() (any, error) {
		return s.source.BrowseDoctors(ctx, specializationID, page, pageSize)
	})
	if err != nil {
		return Listing{}, err
	}
	return s.listing(p), nil
}

func (s *Service) ListSpecializations(ctx context.Context, page, pageSize int) (model.SpecializationPage, error) {
	key := fmt.Sprintf("specializations:%d:%d", page, pageSize)
	var p model.SpecializationPage
	err := s.cached(ctx, key, TagSpecializations, &p, func() (any, error) {
		return s.source.ListSpecializations(ctx, page, pageSize)
	})
	if err != nil {
		return model.SpecializationPage{}, err
	}
	return p, nil
}

// InvalidateDoctors drops every cached doctor listing.
func (s *Service) InvalidateDoctors(ctx context.Context) error {
	return s.cache.InvalidateTag(ctx, TagDoctors)
}

// cached decodes key into out, or loads, stores and decodes it. Cache failures only cost a miss.
func (s *Service) cached(ctx context.Context, key, tag string, out any, load func() (any, error)) error {
	raw, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.observe("error")
		s.logger.Warn("directory cache get failed", "err", err, "key", key)
	case ok:
		if err := json.Unmarshal(raw, out); err == nil {
			s.observe("hit")
			return nil
		}
		s.observe("error")
	default:
		s.observe("miss")
	}

	v, err := load()
	if err != nil {
		return err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl, tag); err != nil {
		s.logger.Warn("directory cache set failed", "err", err, "key", key)
	}
	return json.Unmarshal(raw, out)
}

func (s *Service) listing(p model.DoctorPage) Listing {
	today := s.now().In(s.loc)
	out := Listing{Doctors: make([]Entry, 0, len(p.Doctors)), Total: p.Total}
	for _, d := range p.Doctors {
		out.Doctors = append(out.Doctors, Entry{
			Doctor:             d,
			DisplayName:        d.DisplayName(),
			SpecializationName: d.SpecializationName(),
			NextAvailable:      availability.NextAvailable(today, d.Availability.Windows()),
		})
	}
	return out
}

func (s *Service) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveCache(result)
	}
}
