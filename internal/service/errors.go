// Package service contains the application services sitting between the
// HTTP layer and the stores: authorization gates, the task query engine,
// and the mutation coordinators that emit realtime events.
package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskhub/internal/domain"
)

// Service-level errors. Handlers map these onto HTTP status codes; the
// distinction between "not allowed" and "does not exist" is load-bearing,
// so authorization errors wrap domain.ErrUnauthorized while lookup misses
// propagate the store's not-found sentinels untouched.
var (
	// ErrNotProjectMember indicates the caller is not a member of the
	// project the operation targets.
	ErrNotProjectMember = fmt.Errorf("caller is not a project member: %w", domain.ErrUnauthorized)

	// ErrNotProjectOwner indicates a member-management operation was
	// attempted by someone other than the project owner.
	ErrNotProjectOwner = fmt.Errorf("caller is not the project owner: %w", domain.ErrUnauthorized)

	// ErrInvalidCredentials indicates a login attempt with an unknown email
	// or a wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAlreadyAssigned indicates an attempt to assign a user who is
	// already on the task's assignee list.
	ErrAlreadyAssigned = errors.New("user is already assigned to this task")

	// ErrAlreadyMember indicates an attempt to add a user who is already a
	// project member.
	ErrAlreadyMember = errors.New("user is already a project member")

	// ErrNotMember indicates an attempt to remove a user who is not
	// currently a project member.
	ErrNotMember = errors.New("user is not a project member")

	// ErrOwnerRemoval indicates an attempt to remove the project owner
	// from the member list, which is never allowed.
	ErrOwnerRemoval = errors.New("project owner cannot be removed")

	// ErrInvalidCursor indicates a pagination cursor that does not resolve
	// to a task under the active filter.
	ErrInvalidCursor = errors.New("pagination cursor does not reference a known task")

	// ErrQueryTooShort indicates a search string below the minimum length.
	ErrQueryTooShort = errors.New("search query is too short")
)
