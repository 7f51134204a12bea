// Package memory implementa core.Repository en memoria, con la misma
// semántica transaccional que el driver pg (supersede y cascada atómicas
// bajo un mutex). Lo usan los tests y el modo dev sin base de datos.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

type Store struct {
	mu sync.Mutex

	subjects map[int64]*core.Subject
	services map[int64]*core.Service
	consents map[int64]*core.Consent
	requests map[int64]*core.DataRequest
	docs     map[int64]*core.Document
	logs     []core.AccessLogEntry

	nextSubject int64
	nextService int64
	nextConsent int64
	nextRequest int64
	nextDoc     int64
	nextLog     int64
}

func New() *Store {
	return &Store{
		subjects: make(map[int64]*core.Subject),
		services: make(map[int64]*core.Service),
		consents: make(map[int64]*core.Consent),
		requests: make(map[int64]*core.DataRequest),
		docs:     make(map[int64]*core.Document),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// ---- Subjects ----

func (s *Store) CreateSubject(_ context.Context, sub *core.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subjects {
		if existing.Phone == sub.Phone {
			return core.ErrConflict
		}
		if sub.Email != nil && existing.Email != nil && strings.EqualFold(*existing.Email, *sub.Email) {
			return core.ErrConflict
		}
	}
	s.nextSubject++
	sub.ID = s.nextSubject
	sub.CreatedAt = time.Now().UTC()
	cp := *sub
	s.subjects[sub.ID] = &cp
	return nil
}

func (s *Store) GetSubjectByID(_ context.Context, id int64) (*core.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subjects[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *Store) GetSubjectByPhone(_ context.Context, phone string) (*core.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subjects {
		if sub.Phone == phone {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetSubjectByAadhaarHash(_ context.Context, hash string) (*core.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subjects {
		if sub.AadhaarHash != nil && *sub.AadhaarHash == hash {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) UpdateSubject(_ context.Context, id int64, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subjects[id]
	if !ok {
		return core.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "full_name":
			if fv, ok := v.(string); ok {
				sub.FullName = fv
			}
		case "email":
			if fv, ok := v.(string); ok {
				sub.Email = &fv
			}
		case "profile_photo":
			if fv, ok := v.(string); ok {
				sub.ProfilePhoto = &fv
			}
		case "location":
			if fv, ok := v.(string); ok {
				sub.Location = &fv
			}
		case "attributes":
			if fv, ok := v.(map[string]any); ok {
				sub.Attributes = fv
			}
		case "aadhaar_enc":
			if fv, ok := v.(string); ok {
				sub.AadhaarEnc = &fv
			}
		case "aadhaar_hash":
			if fv, ok := v.(string); ok {
				sub.AadhaarHash = &fv
			}
		case "land_record_enc":
			if fv, ok := v.(string); ok {
				sub.LandRecordEnc = &fv
			}
		}
	}
	return nil
}

func (s *Store) MarkSubjectVerified(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subjects[id]
	if !ok {
		return core.ErrNotFound
	}
	sub.Verified = true
	return nil
}

// ---- Services ----

func (s *Store) CreateService(_ context.Context, svc *core.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextService++
	svc.ID = s.nextService
	svc.CreatedAt = time.Now().UTC()
	cp := *svc
	s.services[svc.ID] = &cp
	return nil
}

func (s *Store) GetServiceByClientID(_ context.Context, clientID string) (*core.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.ClientID == clientID {
			cp := *svc
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetServiceByID(_ context.Context, id int64) (*core.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (s *Store) ListServices(_ context.Context, activeOnly bool) ([]core.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Service
	for _, svc := range s.services {
		if activeOnly && !svc.Active {
			continue
		}
		out = append(out, *svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- Consents ----

func (s *Store) CreateConsent(_ context.Context, c *core.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// supersede: desactivar el activo previo del par en la misma "tx"
	now := time.Now().UTC()
	for _, old := range s.consents {
		if old.SubjectID == c.SubjectID && old.ServiceID == c.ServiceID && old.Active {
			old.Active = false
			old.RevokedAt = &now
		}
	}

	s.nextConsent++
	c.ID = s.nextConsent
	c.CreatedAt = now
	c.Active = true
	cp := *c
	s.consents[c.ID] = &cp
	return nil
}

func (s *Store) GetActiveConsent(_ context.Context, subjectID, serviceID int64) (*core.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.consents {
		if c.SubjectID == subjectID && c.ServiceID == serviceID && c.Active {
			cp := *c
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) ListActiveConsents(_ context.Context, subjectID int64) ([]core.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Consent
	for _, c := range s.consents {
		if c.SubjectID == subjectID && c.Active {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RevokeConsent(_ context.Context, subjectID, serviceID int64, cascadeNote string) (*core.RevocationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &core.RevocationResult{}
	now := time.Now().UTC()
	for _, c := range s.consents {
		if c.SubjectID == subjectID && c.ServiceID == serviceID && c.Active {
			c.Active = false
			c.RevokedAt = &now
			res.Revoked = true
		}
	}
	if !res.Revoked {
		return res, nil
	}

	// cascada: bulk-reject de requests no terminales del par, misma "tx"
	note := cascadeNote
	for _, r := range s.requests {
		if r.SubjectID == subjectID && r.ServiceID == serviceID && !r.Status.Terminal() {
			r.Status = core.StatusRejected
			r.DecisionNotes = &note
			r.UpdatedAt = now
			res.RejectedRequests++
		}
	}
	return res, nil
}

// ---- Data requests ----

func (s *Store) CreateDataRequest(_ context.Context, r *core.DataRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRequest++
	r.ID = s.nextRequest
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *Store) GetDataRequest(_ context.Context, id int64) (*core.DataRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListDataRequestsBySubject(_ context.Context, subjectID int64, kind core.RequestKind) ([]core.DataRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DataRequest
	for _, r := range s.requests {
		if r.SubjectID == subjectID && (kind == "" || r.Kind == kind) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDataRequestsByService(_ context.Context, serviceID int64, kind core.RequestKind) ([]core.DataRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DataRequest
	for _, r := range s.requests {
		if r.ServiceID == serviceID && (kind == "" || r.Kind == kind) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateDataRequestStatus(_ context.Context, id int64, status core.RequestStatus, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return core.ErrNotFound
	}
	if r.Status.Terminal() {
		return core.ErrConflictingState
	}
	r.Status = status
	if notes != nil {
		cp := *notes
		r.DecisionNotes = &cp
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ReplaceDocumentSnapshot(_ context.Context, id int64, docIDs []int64, status core.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return core.ErrNotFound
	}
	if r.Status.Terminal() {
		return core.ErrConflictingState
	}
	r.DocumentIDs = append([]int64(nil), docIDs...)
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// ---- Documents ----

func (s *Store) CreateDocument(_ context.Context, d *core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDoc++
	d.ID = s.nextDoc
	d.CreatedAt = time.Now().UTC()
	cp := *d
	s.docs[d.ID] = &cp
	return nil
}

func (s *Store) GetDocumentsByIDs(_ context.Context, subjectID int64, ids []int64) ([]core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Document
	if ids == nil {
		for _, d := range s.docs {
			if d.SubjectID == subjectID {
				out = append(out, *d)
			}
		}
	} else {
		for _, id := range ids {
			if d, ok := s.docs[id]; ok && d.SubjectID == subjectID {
				out = append(out, *d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- Audit ----

func (s *Store) AppendAccessLog(_ context.Context, e *core.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLog++
	e.ID = s.nextLog
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.logs = append(s.logs, *e)
	return nil
}

func (s *Store) ListAccessLog(_ context.Context, subjectID int64, limit int) ([]core.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AccessLogEntry
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.logs[i].SubjectID == subjectID {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}
