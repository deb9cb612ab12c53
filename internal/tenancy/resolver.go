// Package tenancy determines which school a request belongs to.
//
// A school is found from the leftmost DNS label of the request host and,
// failing that, from the school stored on the authenticated user. An
// unresolved request is unscoped and must not reach tenant data.
package tenancy

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Source tells how a tenant was resolved.
type Source string

const (
	SourceNone      Source = ""
	SourceSubdomain Source = "subdomain"
	SourceUser      Source = "user"
)

// Resolution is the outcome of Resolve. SchoolID is uuid.Nil when unresolved.
type Resolution struct {
	SchoolID uuid.UUID
	Slug     string
	Source   Source
}

// Resolved reports whether a tenant was found.
func (r Resolution) Resolved() bool {
	return r.SchoolID != uuid.Nil
}

type SchoolLookup interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*models.School, error)
}

type UserSchoolLookup interface {
	GetSchoolID(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error)
}

// SchoolCache is the subset of the cache service the resolver reads through.
type SchoolCache interface {
	GetSchool(ctx context.Context, subdomain string) (*models.School, error)
	SetSchool(ctx context.Context, school *models.School, ttl time.Duration) error
}

const schoolCacheTTL = 10 * time.Minute

// SlugFromHost returns the tenant slug carried by host, if any.
//
// The port and a trailing dot are ignored and the host is lower-cased. IP
// literals carry no slug. A slug exists only when the host has more than two
// labels and the leftmost label is neither empty nor "www".
func SlugFromHost(host string) (string, bool) {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return "", false
	}
	slug := labels[0]
	if slug == "" || slug == "www" {
		return "", false
	}
	return slug, true
}

type Resolver struct {
	schools SchoolLookup
	users   UserSchoolLookup
	cache   SchoolCache
	log     logrus.FieldLogger
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(schools SchoolLookup, users UserSchoolLookup, cache SchoolCache, log logrus.FieldLogger) *Resolver {
	return &Resolver{schools: schools, users: users, cache: cache, log: log}
}

// Resolve finds the tenant for a request to host by userID. userID may be
// uuid.Nil for anonymous callers. Not finding a school is not an error: the
// zero Resolution is returned.
func (r *Resolver) Resolve(ctx context.Context, host string, userID uuid.UUID) (Resolution, error) {
	if slug, ok := SlugFromHost(host); ok {
		school, err := r.schoolBySlug(ctx, slug)
		if err != nil {
			return Resolution{}, err
		}
		if school != nil {
			return Resolution{SchoolID: school.ID, Slug: slug, Source: SourceSubdomain}, nil
		}
	}

	if userID == uuid.Nil {
		return Resolution{}, nil
	}
	schoolID, ok, err := r.users.GetSchoolID(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}
	if !ok {
		return Resolution{}, nil
	}
	return Resolution{SchoolID: schoolID, Source: SourceUser}, nil
}

func (r *Resolver) schoolBySlug(ctx context.Context, slug string) (*models.School, error) {
	if r.cache != nil {
		school, err := r.cache.GetSchool(ctx, slug)
		if err != nil {
			r.log.WithError(err).WithField("slug", slug).Warn("school cache read failed")
		} else if school != nil {
			return school, nil
		}
	}

	school, err := r.schools.GetBySubdomain(ctx, slug)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetSchool(ctx, school, schoolCacheTTL); err != nil {
			r.log.WithError(err).WithField("slug", slug).Warn("school cache write failed")
		}
	}
	return school, nil
}
