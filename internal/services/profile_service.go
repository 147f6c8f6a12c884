package services

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// DefaultProfile is created when no profile exists yet.
const DefaultProfile = "Default"

const maxProfileNameLength = 64

// ProfileState is the profile list plus the selected profile.
type ProfileState struct {
	Profiles []string `json:"profiles"`
	Current  string   `json:"current"`
}

// ProfileService manages the named profiles and the selected one.
type ProfileService struct {
	repo   SnapshotRepository
	logger *log.Logger
	mu     sync.Mutex
}

func NewProfileService(repo SnapshotRepository, logger *log.Logger) *ProfileService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ProfileService{repo: repo, logger: logger.WithComponent(log.ComponentProfiles)}
}

// State returns the profiles, creating the default profile on first use and
// repairing a current pointer that names a missing profile.
func (s *ProfileService) State(ctx context.Context) (ProfileState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(ctx)
}

func (s *ProfileService) stateLocked(ctx context.Context) (ProfileState, error) {
	names, err := s.repo.Profiles(ctx)
	if err != nil {
		return ProfileState{}, err
	}
	current, err := s.repo.CurrentProfile(ctx)
	if err != nil {
		return ProfileState{}, err
	}

	if len(names) == 0 {
		names = []string{DefaultProfile}
		if err := s.repo.SetProfiles(ctx, names); err != nil {
			return ProfileState{}, err
		}
	}
	if !slices.Contains(names, current) {
		current = names[0]
		if err := s.repo.SetCurrentProfile(ctx, current); err != nil {
			return ProfileState{}, err
		}
	}
	return ProfileState{Profiles: names, Current: current}, nil
}

// Current returns the selected profile.
func (s *ProfileService) Current(ctx context.Context) (string, error) {
	st, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	return st.Current, nil
}

// Exists reports whether name is a known profile.
func (s *ProfileService) Exists(ctx context.Context, name string) (bool, error) {
	st, err := s.State(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(st.Profiles, name), nil
}

// Create adds a profile and selects it.
func (s *ProfileService) Create(ctx context.Context, name string) (ProfileState, error) {
	name, err := ValidateProfileName(name)
	if err != nil {
		return ProfileState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.stateLocked(ctx)
	if err != nil {
		return ProfileState{}, err
	}
	if slices.Contains(st.Profiles, name) {
		return st, core.ErrDuplicateName
	}
	st.Profiles = append(st.Profiles, name)
	if err := s.repo.SetProfiles(ctx, st.Profiles); err != nil {
		return ProfileState{}, err
	}
	if err := s.repo.SetCurrentProfile(ctx, name); err != nil {
		return ProfileState{}, err
	}
	st.Current = name
	s.logger.InfoContext(ctx, "Profile created", log.FieldProfile, name)
	return st, nil
}

// Select makes name the current profile.
func (s *ProfileService) Select(ctx context.Context, name string) (ProfileState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.stateLocked(ctx)
	if err != nil {
		return ProfileState{}, err
	}
	if !slices.Contains(st.Profiles, name) {
		return st, ErrUnknownProfile
	}
	if err := s.repo.SetCurrentProfile(ctx, name); err != nil {
		return ProfileState{}, err
	}
	st.Current = name
	return st, nil
}

// Delete removes a profile and its snapshot. Deleting the selected profile
// selects the first remaining one; the last profile cannot be deleted.
func (s *ProfileService) Delete(ctx context.Context, name string) (ProfileState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.stateLocked(ctx)
	if err != nil {
		return ProfileState{}, err
	}
	idx := slices.Index(st.Profiles, name)
	if idx < 0 {
		return st, ErrUnknownProfile
	}
	if len(st.Profiles) == 1 {
		return st, ErrLastProfile
	}

	remaining := slices.Delete(slices.Clone(st.Profiles), idx, idx+1)
	if err := s.repo.SetProfiles(ctx, remaining); err != nil {
		return ProfileState{}, err
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return ProfileState{}, err
	}
	st.Profiles = remaining
	if st.Current == name {
		st.Current = remaining[0]
		if err := s.repo.SetCurrentProfile(ctx, st.Current); err != nil {
			return ProfileState{}, err
		}
	}
	s.logger.InfoContext(ctx, "Profile deleted", log.FieldProfile, name)
	return st, nil
}

// ValidateProfileName trims name and rejects empty, overlong and reserved
// names. Names end up in keys and download file names, so separators, quotes
// and control characters are refused.
func ValidateProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxProfileNameLength || strings.ContainsAny(name, "/|\"\\") || strings.ContainsFunc(name, unicode.IsControl) {
		return "", ErrInvalidProfile
	}
	if slices.Contains(storage.ReservedProfileNames, name) {
		return "", ErrReservedName
	}
	return name, nil
}
