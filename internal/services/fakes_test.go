package services

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"time"

	"tandem-backend/internal/geocode"
	"tandem-backend/internal/identity"
	"tandem-backend/internal/push"
	"tandem-backend/internal/repository"
)

// fakeDocs is an in-memory document store with the same merge and query
// semantics the services rely on.
type fakeDocs struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{data: map[string]map[string]any{}}
}

func (f *fakeDocs) Get(ctx context.Context, path string) (*repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[path]
	if !ok {
		return nil, nil
	}
	return &repository.Document{Path: path, ID: lastFakeSegment(path), Data: copyData(data)}, nil
}

func (f *fakeDocs) Create(ctx context.Context, path string, fields map[string]any) (*repository.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[path]; ok {
		return nil, repository.ErrExists
	}
	data := repository.ApplyFields(map[string]any{}, fields)
	if _, ok := data["createdAt"]; !ok {
		data["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	}
	f.data[path] = data
	return &repository.WriteResult{WriteTime: time.Now()}, nil
}

func (f *fakeDocs) Update(ctx context.Context, path string, fields map[string]any) (*repository.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[path]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.data[path] = repository.ApplyFields(data, fields)
	return &repository.WriteResult{WriteTime: time.Now()}, nil
}

func (f *fakeDocs) Upsert(ctx context.Context, path string, fields map[string]any, merge bool) (*repository.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !merge {
		f.data[path] = repository.ApplyFields(map[string]any{}, fields)
		return &repository.WriteResult{WriteTime: time.Now()}, nil
	}
	data, ok := f.data[path]
	if !ok {
		data = map[string]any{}
	}
	f.data[path] = repository.ApplyFields(data, fields)
	return &repository.WriteResult{WriteTime: time.Now()}, nil
}

func (f *fakeDocs) Delete(ctx context.Context, path string) (*repository.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, path)
	return &repository.WriteResult{WriteTime: time.Now()}, nil
}

func (f *fakeDocs) Query(ctx context.Context, collection string, constraints []repository.Constraint, opts repository.QueryOptions) ([]*repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []*repository.Document
	for path, data := range f.data {
		if fakeCollection(path) != collection {
			continue
		}
		if !matchesConstraints(data, constraints) {
			continue
		}
		docs = append(docs, &repository.Document{Path: path, ID: lastFakeSegment(path), Data: copyData(data)})
		if opts.Limit > 0 && len(docs) == opts.Limit {
			break
		}
	}
	return docs, nil
}

// get returns the stored field map for direct assertions.
func (f *fakeDocs) get(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyData(f.data[path])
}

func (f *fakeDocs) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[path]
	return ok
}

func matchesConstraints(data map[string]any, constraints []repository.Constraint) bool {
	for _, c := range constraints {
		value, ok := data[c.Field]
		equal := ok && reflect.DeepEqual(value, jsonNorm(c.Value))
		switch c.Op {
		case "==":
			if !equal {
				return false
			}
		case "!=":
			if equal {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func jsonNorm(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func copyData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out, _ := jsonNorm(data).(map[string]any)
	return out
}

func fakeCollection(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return path
	}
	return path[:i]
}

func lastFakeSegment(path string) string {
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// fakeRefs is an in-memory reference store.
type fakeRefs struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func newFakeRefs() *fakeRefs {
	return &fakeRefs{data: map[string]map[string]any{}}
}

func (f *fakeRefs) Get(ctx context.Context, path string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyData(f.data[path]), nil
}

func (f *fakeRefs) Update(ctx context.Context, path string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[path]
	if !ok {
		data = map[string]any{}
	}
	for k, v := range fields {
		data[k] = jsonNorm(v)
	}
	f.data[path] = data
	return nil
}

func (f *fakeRefs) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, path)
	return nil
}

// sentNotification is one recorded Notifier call.
type sentNotification struct {
	userID string
	title  string
	body   string
	data   map[string]string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{userID: userID, title: title, body: body, data: data})
	return f.err
}

func (f *fakeNotifier) notifications() []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentNotification(nil), f.sent...)
}

// fakeTransport records delivered messages and reports a configured number of
// failures per batch.
type fakeTransport struct {
	mu       sync.Mutex
	batches  [][]push.Message
	failures int
	err      error
}

func (f *fakeTransport) SendAll(ctx context.Context, messages []push.Message) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, messages)
	return f.failures, f.err
}

// fakeGeocoder serves a fixed result and counts provider calls.
type fakeGeocoder struct {
	mu     sync.Mutex
	result geocode.Result
	err    error
	calls  int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	result := f.result
	return &result, nil
}

func (f *fakeGeocoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeProvider is an in-memory identity provider.
type fakeProvider struct {
	mu      sync.Mutex
	claims  map[string]map[string]any
	deleted []string
	err     error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{claims: map[string]map[string]any{}}
}

func (f *fakeProvider) User(ctx context.Context, uid string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &identity.User{UID: uid, Claims: copyData(f.claims[uid])}, nil
}

func (f *fakeProvider) SetClaims(ctx context.Context, uid string, claims map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.claims[uid] = copyData(claims)
	return nil
}

func (f *fakeProvider) DeleteUser(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.claims, uid)
	f.deleted = append(f.deleted, uid)
	return nil
}

// fakeHub records claims-refresh signals.
type fakeHub struct {
	mu       sync.Mutex
	notified []string
}

func (f *fakeHub) NotifyClaimsRefresh(userID string, refreshTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, userID)
	return nil
}
