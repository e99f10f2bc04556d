package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reseau-affaires/apiserver/internal/store"
	"github.com/reseau-affaires/apiserver/types"
)

type fakeAccounts struct {
	mu                sync.Mutex
	users             map[int]types.User
	profiles          map[types.Role]map[int]types.Profile
	nextUserID        int
	nextProfileID     int
	failProfileInsert bool
	failExpertUpdate  bool
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:    map[int]types.User{},
		profiles: map[types.Role]map[int]types.Profile{},
	}
}

func withIDs(profile types.Profile, user types.User, id int) types.Profile {
	switch p := profile.(type) {
	case types.ApporteurAffaires:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	case types.ChercheurAffaires:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	case types.Expert:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	case types.Administrateur:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	}
	return profile
}

func (f *fakeAccounts) GetUser(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeAccounts) GetUserByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeAccounts) ListUsers(_ context.Context, offset, limit int) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, f.users[id])
	}
	return page(users, offset, limit), nil
}

func (f *fakeAccounts) insertUser(user types.User) types.User {
	f.nextUserID++
	user.ID = f.nextUserID
	user.DateJoined = time.Now()
	user.UpdatedAt = user.DateJoined
	f.users[user.ID] = user
	return user
}

func (f *fakeAccounts) CreateUser(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.Role = types.RoleUtilisateur
	return f.insertUser(user), nil
}

func (f *fakeAccounts) CreateAccount(_ context.Context, profile types.Profile) (types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProfileInsert {
		return nil, errors.New("insert profile: connection reset")
	}
	user := profile.Account()
	user.Role = profile.Role()
	user = f.insertUser(user)
	f.nextProfileID++
	created := withIDs(profile, user, f.nextProfileID)
	if f.profiles[user.Role] == nil {
		f.profiles[user.Role] = map[int]types.Profile{}
	}
	f.profiles[user.Role][created.ProfileID()] = created
	return created, nil
}

func (f *fakeAccounts) GetProfile(_ context.Context, role types.Role, id int) (types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[role][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return withIDs(profile, f.users[profile.AccountID()], id), nil
}

func (f *fakeAccounts) ListProfiles(_ context.Context, role types.Role, offset, limit int) ([]types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0)
	for id := range f.profiles[role] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	profiles := make([]types.Profile, 0, len(ids))
	for _, id := range ids {
		profile := f.profiles[role][id]
		profiles = append(profiles, withIDs(profile, f.users[profile.AccountID()], id))
	}
	return page(profiles, offset, limit), nil
}

func (f *fakeAccounts) ProfileIDForUser(_ context.Context, role types.Role, userID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, profile := range f.profiles[role] {
		if profile.AccountID() == userID {
			return id, nil
		}
	}
	return 0, store.ErrNotFound
}

func (f *fakeAccounts) UpdateUser(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Role = existing.Role
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeAccounts) UpdateExpert(_ context.Context, expert types.Expert, user *types.User) (types.Expert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[types.RoleExpert][expert.ID]; !ok {
		return types.Expert{}, store.ErrNotFound
	}
	if f.failExpertUpdate {
		return types.Expert{}, errors.New("expert update failed")
	}
	if user != nil {
		user.Role = f.users[user.ID].Role
		f.users[user.ID] = *user
		expert.User = *user
	}
	f.profiles[types.RoleExpert][expert.ID] = expert
	return expert, nil
}

func (f *fakeAccounts) SetActive(_ context.Context, userID int, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.IsActive = active
	f.users[userID] = user
	return nil
}

func (f *fakeAccounts) DeleteUser(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	for profileID, profile := range f.profiles[user.Role] {
		if profile.AccountID() == id {
			delete(f.profiles[user.Role], profileID)
		}
	}
	delete(f.users, id)
	return nil
}

func (f *fakeAccounts) DeleteProfile(_ context.Context, role types.Role, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[role][id]
	if !ok {
		return store.ErrNotFound
	}
	delete(f.profiles[role], id)
	user := f.users[profile.AccountID()]
	user.Role = types.RoleUtilisateur
	f.users[user.ID] = user
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type fakeAnnonces struct {
	mu       sync.Mutex
	annonces []types.Annonce
	nextID   int
}

func (f *fakeAnnonces) List(_ context.Context, filter types.AnnonceFilter) ([]types.Annonce, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matches := make([]types.Annonce, 0)
	for _, a := range f.annonces {
		if filter.MotCle != "" && !strings.Contains(strings.ToLower(a.Titre), strings.ToLower(filter.MotCle)) {
			continue
		}
		if filter.Categorie != "" && !strings.EqualFold(string(a.Categorie), filter.Categorie) {
			continue
		}
		if filter.AuteurID > 0 && a.AuteurID != filter.AuteurID {
			continue
		}
		matches = append(matches, a)
	}
	return page(matches, filter.Offset, filter.Limit), nil
}

func (f *fakeAnnonces) Get(_ context.Context, id int) (types.Annonce, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.annonces {
		if a.ID == id {
			return a, nil
		}
	}
	return types.Annonce{}, store.ErrNotFound
}

func (f *fakeAnnonces) Create(_ context.Context, annonce types.Annonce) (types.Annonce, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	annonce.ID = f.nextID
	annonce.DatePublication = time.Now()
	f.annonces = append(f.annonces, annonce)
	return annonce, nil
}

func (f *fakeAnnonces) Update(_ context.Context, annonce types.Annonce) (types.Annonce, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.annonces {
		if a.ID == annonce.ID {
			annonce.AuteurID = a.AuteurID
			annonce.DatePublication = a.DatePublication
			f.annonces[i] = annonce
			return annonce, nil
		}
	}
	return types.Annonce{}, store.ErrNotFound
}

func (f *fakeAnnonces) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.annonces {
		if a.ID == id {
			f.annonces = append(f.annonces[:i], f.annonces[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	seq     int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]string{}}
}

func (f *fakeObjects) Upload(_ context.Context, namespace, filename string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	key := namespace + "/" + strings.Repeat("x", f.seq) + "-" + filename
	f.objects[key] = string(data)
	return key, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type publishedEvent struct {
	channel string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishJSON(_ context.Context, channel string, v any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{channel: channel, payload: v})
	return "id", nil
}

func (f *fakePublisher) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	channels := make([]string, 0, len(f.events))
	for _, e := range f.events {
		channels = append(channels, e.channel)
	}
	return channels
}

type fakeDocumentations struct {
	docs   []types.Documentation
	nextID int
}

func (f *fakeDocumentations) List(_ context.Context, offset, limit int) ([]types.Documentation, error) {
	return page(append([]types.Documentation{}, f.docs...), offset, limit), nil
}

func (f *fakeDocumentations) Get(_ context.Context, id int) (types.Documentation, error) {
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return types.Documentation{}, store.ErrNotFound
}

func (f *fakeDocumentations) Create(_ context.Context, doc types.Documentation) (types.Documentation, error) {
	f.nextID++
	doc.ID = f.nextID
	f.docs = append(f.docs, doc)
	return doc, nil
}

func (f *fakeDocumentations) Update(_ context.Context, doc types.Documentation) (types.Documentation, error) {
	for i, d := range f.docs {
		if d.ID == doc.ID {
			f.docs[i] = doc
			return doc, nil
		}
	}
	return types.Documentation{}, store.ErrNotFound
}

func (f *fakeDocumentations) Delete(_ context.Context, id int) error {
	for i, d := range f.docs {
		if d.ID == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeEvenements struct {
	evenements   []types.Evenement
	participants map[int]map[int]bool
	users        map[int]types.User
	nextID       int
}

func newFakeEvenements() *fakeEvenements {
	return &fakeEvenements{participants: map[int]map[int]bool{}, users: map[int]types.User{}}
}

func (f *fakeEvenements) withCount(e types.Evenement) types.Evenement {
	e.Participants = len(f.participants[e.ID])
	return e
}

func (f *fakeEvenements) List(_ context.Context, offset, limit int) ([]types.Evenement, error) {
	out := make([]types.Evenement, 0, len(f.evenements))
	for _, e := range f.evenements {
		out = append(out, f.withCount(e))
	}
	return page(out, offset, limit), nil
}

func (f *fakeEvenements) Get(_ context.Context, id int) (types.Evenement, error) {
	for _, e := range f.evenements {
		if e.ID == id {
			return f.withCount(e), nil
		}
	}
	return types.Evenement{}, store.ErrNotFound
}

func (f *fakeEvenements) Create(_ context.Context, e types.Evenement) (types.Evenement, error) {
	f.nextID++
	e.ID = f.nextID
	f.evenements = append(f.evenements, e)
	return e, nil
}

func (f *fakeEvenements) Update(_ context.Context, e types.Evenement) (types.Evenement, error) {
	for i, existing := range f.evenements {
		if existing.ID == e.ID {
			f.evenements[i] = e
			return f.withCount(e), nil
		}
	}
	return types.Evenement{}, store.ErrNotFound
}

func (f *fakeEvenements) Delete(_ context.Context, id int) error {
	for i, e := range f.evenements {
		if e.ID == id {
			f.evenements = append(f.evenements[:i], f.evenements[i+1:]...)
			delete(f.participants, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeEvenements) AddParticipant(ctx context.Context, evenementID, userID int) error {
	if _, err := f.Get(ctx, evenementID); err != nil {
		return err
	}
	if f.participants[evenementID] == nil {
		f.participants[evenementID] = map[int]bool{}
	}
	f.participants[evenementID][userID] = true
	return nil
}

func (f *fakeEvenements) ListParticipants(_ context.Context, evenementID int) ([]types.User, error) {
	ids := make([]int, 0)
	for id := range f.participants[evenementID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, types.User{ID: id})
	}
	return users, nil
}
