package api

import (
	"github.com/ruteri/ork-registry/interfaces"
)

// Paths served by the registry HTTP API.
const (
	ActionsPrefix = "/api/v1/actions"

	SeedRootPath     = ActionsPrefix + "/seedroot"
	AddOrkPath       = ActionsPrefix + "/addork"
	InitUserPath     = ActionsPrefix + "/inituser"
	ConfirmUserPath  = ActionsPrefix + "/confirmuser"
	PostFragmentPath = ActionsPrefix + "/postfragment"

	UsersPath      = "/api/v1/users"
	OrksPath       = "/api/v1/orks"
	ContainersPath = "/api/v1/containers"
	HeadPath       = "/api/v1/head"
	SnapshotPath   = "/api/v1/admin/snapshot"
)

// AddOrkRequest claims or updates the directory row of a custodian.
type AddOrkRequest struct {
	Account   interfaces.Identity `json:"account"`
	Username  interfaces.Username `json:"username"`
	PublicKey string              `json:"public_key"`
	URL       string              `json:"url"`
}

// InitUserRequest starts or refreshes a pending registration.
type InitUserRequest struct {
	Vendor   interfaces.Username `json:"vendor"`
	Account  interfaces.Identity `json:"account"`
	Username interfaces.Username `json:"username"`
	Timeout  uint64              `json:"timeout"`
}

type ConfirmUserRequest struct {
	Vendor   interfaces.Username `json:"vendor"`
	Username interfaces.Username `json:"username"`
}

// PostFragmentRequest stores a key fragment in the calling custodian's scope.
type PostFragmentRequest struct {
	Ork           interfaces.Username `json:"ork"`
	Username      interfaces.Username `json:"username"`
	Vendor        interfaces.Username `json:"vendor"`
	Frag          string              `json:"frag"`
	FragPublicKey string              `json:"frag_public_key"`
	PassHash      string              `json:"pass_hash"`
}

// SnapshotResponse reports an archived ledger snapshot.
type SnapshotResponse struct {
	ContentID interfaces.ContentID `json:"content_id"`
	Head      uint64               `json:"head"`
}

// HeadResponse reports the sequence of the last committed action.
type HeadResponse struct {
	Head uint64 `json:"head"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
