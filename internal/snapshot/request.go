package snapshot

import (
	"strings"

	"codesnap/internal/errors"
	"codesnap/internal/storage"
)

// ServiceRef pins one service to one scanned revision.
type ServiceRef struct {
	ServiceID     string `json:"serviceId" yaml:"serviceId"`
	GitCommitHash string `json:"gitCommitHash" yaml:"gitCommitHash"`
}

// BuildRequest selects the application name and the set of service revisions
// a snapshot is assembled from.
type BuildRequest struct {
	AppName  string       `json:"appName" yaml:"appName"`
	Services []ServiceRef `json:"services" yaml:"services"`
}

// Validate checks the request preconditions: a non-empty app name and at
// least one service, each with a non-empty id and commit hash.
func (r *BuildRequest) Validate() error {
	if strings.TrimSpace(r.AppName) == "" {
		return errors.New(errors.InvalidInput, "app name is required")
	}
	if len(r.Services) == 0 {
		return errors.New(errors.InvalidInput, "at least one service is required")
	}
	for _, svc := range r.Services {
		if strings.TrimSpace(svc.ServiceID) == "" {
			return errors.New(errors.InvalidInput, "service id is required")
		}
		if strings.TrimSpace(svc.GitCommitHash) == "" {
			return errors.Newf(errors.InvalidInput,
				"git commit hash is required for service: %s", svc.ServiceID)
		}
	}
	return nil
}

// Pairs converts the requested services into storage lookup pairs.
func (r *BuildRequest) Pairs() []storage.ServiceCommit {
	pairs := make([]storage.ServiceCommit, 0, len(r.Services))
	for _, svc := range r.Services {
		pairs = append(pairs, storage.ServiceCommit{
			ServiceID:     svc.ServiceID,
			GitCommitHash: svc.GitCommitHash,
		})
	}
	return pairs
}
