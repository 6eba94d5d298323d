// Package repository implements MySQL-backed persistence. Each
// repository is a concrete struct holding *sql.DB, constructed with
// the table it owns — collection resolution is explicit injection,
// never reflection. Sentinel errors let handlers map failures to
// HTTP statuses without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup, update or delete targets an
// id that does not exist. Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a create would violate the unique
// email invariant among active users. Handlers translate this into
// HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a well-formed operation violates a
// state invariant: rotating an already-consumed refresh token,
// re-upgrading an upgraded anonymous user, duplicate group names.
// Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
