package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/civic-desk/complaint-service/internal/auth"
	"github.com/civic-desk/complaint-service/internal/config"
	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/events"
	"github.com/civic-desk/complaint-service/internal/observability"
	"github.com/civic-desk/complaint-service/internal/repository/memory"
	apperrors "github.com/civic-desk/complaint-service/pkg/util/errorutil"
)

const registrationSecret = "let-me-in"

// fakeFiles records stored and deleted locators.
type fakeFiles struct {
	mu        sync.Mutex
	stored    map[string][]byte
	deleted   []string
	storeErr  error
	deleteErr error
	seq       int
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{stored: make(map[string][]byte)}
}

func (f *fakeFiles) Store(_ context.Context, prefix string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.seq++
	locator := fmt.Sprintf("%s/%d", prefix, f.seq)
	f.stored[locator] = data
	return locator, nil
}

func (f *fakeFiles) Delete(_ context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, locator)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.stored, locator)
	return nil
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

type fixture struct {
	store       *memory.Store
	files       *fakeFiles
	logs        *observer.ObservedLogs
	tokens      *auth.TokenManager
	revoker     *auth.MemoryTokenRevoker
	published   *recorder
	workflow    *WorkflowService
	identity    *IdentityService
	departments *DepartmentService

	water, roads          *domain.Department
	citizen, other        *domain.User
	intake                *domain.User
	waterAdmin, roadAdmin *domain.User
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	metrics := observability.NewMetrics()

	store := memory.NewStore()
	files := newFakeFiles()
	dispatcher := events.NewInMemoryDispatcher(logger)
	rec := &recorder{}
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, rec.handle)
	}

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	revoker := auth.NewMemoryTokenRevoker()
	cfg := config.Config{
		Auth: config.AuthConfig{
			BcryptCost:              4,
			AdminRegistrationSecret: registrationSecret,
			PasswordResetTTLMinutes: 30,
		},
		Storage: config.StorageConfig{ImageMaxMB: 5},
	}

	f := &fixture{
		store:     store,
		files:     files,
		logs:      logs,
		tokens:    tokens,
		revoker:   revoker,
		published: rec,
		workflow: NewWorkflowService(WorkflowDependencies{
			ComplaintRepo: store.Complaints(),
			HistoryRepo:   store.History(),
			MessageRepo:   store.Messages(),
			Files:         files,
			Dispatcher:    dispatcher,
			Metrics:       metrics,
			Logger:        logger,
			ImageMaxBytes: cfg.Storage.ImageMaxBytes(),
		}),
		identity: NewIdentityService(cfg, IdentityDependencies{
			UserRepo:          store.Users(),
			DepartmentRepo:    store.Departments(),
			PasswordResetRepo: store.PasswordResets(),
			Tokens:            tokens,
			Revoker:           revoker,
			Files:             files,
			Logger:            logger,
		}),
		departments: NewDepartmentService(store.Departments(), logger, metrics),
	}

	ctx := context.Background()
	f.water = &domain.Department{Name: "Water"}
	f.roads = &domain.Department{Name: "Roads"}
	require.NoError(t, store.Departments().Create(ctx, f.water))
	require.NoError(t, store.Departments().Create(ctx, f.roads))

	f.citizen = f.addUser(t, "citizen@example.com", domain.RoleCitizen, nil)
	f.other = f.addUser(t, "other@example.com", domain.RoleCitizen, nil)
	f.intake = f.addUser(t, "intake@example.com", domain.RoleIntakeAdmin, nil)
	f.waterAdmin = f.addUser(t, "water@example.com", domain.RoleDepartmentAdmin, &f.water.ID)
	f.roadAdmin = f.addUser(t, "roads@example.com", domain.RoleDepartmentAdmin, &f.roads.ID)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role domain.Role, dept *string) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: role, DepartmentID: dept}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) file(t *testing.T, owner *domain.User, department string) *domain.Complaint {
	t.Helper()
	c, err := f.workflow.CreateComplaint(context.Background(), owner, CreateComplaintInput{
		DepartmentName: department,
		Title:          "Broken pipe",
		Description:    "Water running down the street",
	})
	require.NoError(t, err)
	return c
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T: %v", err, err)
	return de.Code
}

func strPtr(s string) *string { return &s }
