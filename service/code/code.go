package code

import (
	"fmt"
	"time"

	"github.com/peergate/peergate/platform/service"
)

// List is a collection of referral codes.
type List []*Code

// Values returns the extracted code values of all codes as list.
func (l List) Values() []string {
	vs := []string{}

	for _, c := range l {
		vs = append(vs, c.Code)
	}

	return vs
}

// Code is a single-use referral granting entry to the peer network.
type Code struct {
	Code      string    `json:"code"`
	Deleted   bool      `json:"deleted"`
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	Used      bool      `json:"used"`
	UsedByID  uint64    `json:"used_by_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate performs semantic checks on the passed Code values for correctness.
func (c *Code) Validate() error {
	if c.Code == "" {
		return wrapError(ErrInvalidCode, "code must be set")
	}

	if c.OwnerID == 0 {
		return wrapError(ErrInvalidCode, "owner id not set")
	}

	if !c.Used && c.UsedByID != 0 {
		return wrapError(ErrInvalidCode, "unused code must not carry a consumer")
	}

	return nil
}

// QueryOptions is used to narrow-down code queries.
type QueryOptions struct {
	Codes    []string
	Deleted  *bool
	IDs      []uint64
	Limit    int
	OwnerIDs []uint64
	Used     *bool
}

// Service for code interactions.
type Service interface {
	service.Lifecycle

	Claim(namespace, codeValue string, userID uint64) (*Code, error)
	Count(namespace string, opts QueryOptions) (int, error)
	Put(namespace string, code *Code) (*Code, error)
	Query(namespace string, opts QueryOptions) (List, error)
	Release(namespace, codeValue string) error
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service

func flakeNamespace(ns string) string {
	return fmt.Sprintf("%s_%s", ns, "codes")
}
