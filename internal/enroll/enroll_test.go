package enroll_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/attendd/attendd/internal/config"
	"github.com/attendd/attendd/internal/device"
	"github.com/attendd/attendd/internal/device/mocks"
	"github.com/attendd/attendd/internal/enroll"
	"github.com/attendd/attendd/internal/ident"
	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
	"github.com/attendd/attendd/pkg/zk"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testTable() []config.Device {
	return []config.Device{
		{DeviceID: "lab-a", IP: "10.0.0.11", Port: 4370, Name: "Lab A", Location: "Room 1", Enabled: true},
		{DeviceID: "lab-b", IP: "10.0.0.12", Port: 4370, Name: "Lab B", Location: "Room 2", Enabled: true},
	}
}

func payload() *model.RegisterPayload {
	return &model.RegisterPayload{
		FirstName: "A", LastName: "B", PhoneNumber: "0",
		Gender: "male", Level: 1,
	}
}

// remoteScript fakes the backend for registration flows.
type remoteScript struct {
	nextUID  int
	createFn func(w http.ResponseWriter)

	mu      sync.Mutex
	creates []model.Student
}

func (rs *remoteScript) serve() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /students/next-ids", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uid":        rs.nextUID,
			"student_id": strconv.Itoa(rs.nextUID),
		})
	})
	mux.HandleFunc("POST /students/", func(w http.ResponseWriter, r *http.Request) {
		var s model.Student
		_ = json.NewDecoder(r.Body).Decode(&s)
		rs.mu.Lock()
		rs.creates = append(rs.creates, s)
		fn := rs.createFn
		rs.mu.Unlock()
		if fn != nil {
			fn(w)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	return httptest.NewServer(mux)
}

func (rs *remoteScript) created() []model.Student {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]model.Student(nil), rs.creates...)
}

type env struct {
	store    *store.Mem
	alloc    *ident.Allocator
	enroller *enroll.Enroller
}

func newEnv(t *testing.T, baseURL string, driver zk.Driver, table []config.Device) *env {
	t.Helper()
	mem := store.NewMem()
	log := quietLogger()
	alloc := ident.NewAllocator(mem)
	reg := device.NewRegistry(driver, table, 0, log)
	client := remote.NewClient(baseURL, log)
	probe := remote.NewProbe(baseURL, log)
	return &env{
		store:    mem,
		alloc:    alloc,
		enroller: enroll.NewEnroller(reg, alloc, client, probe, mem, nil, log),
	}
}

// enrollableConn scripts a full successful enrollment session.
func enrollableConn(t *testing.T, uid uint16, data []byte) *mocks.MockConn {
	conn := mocks.NewMockConn(t)
	conn.EXPECT().Disable(mock.Anything).Return(nil).Once()
	conn.EXPECT().SetUser(mock.Anything, mock.MatchedBy(func(u zk.User) bool { return u.UID == uid })).Return(nil).Once()
	conn.EXPECT().Enroll(mock.Anything, uid, uint8(0)).Return(&zk.Template{UID: uid, Data: data}, nil).Once()
	conn.EXPECT().Enable(mock.Anything).Return(nil).Once()
	conn.EXPECT().Close().Return(nil).Once()
	return conn
}

func TestRegisterOfflineQueuesStudent(t *testing.T) {
	// A closed backend: the probe reports offline and the whole flow
	// runs on the local counter and the deferred queue.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	tpl := []byte{0x10, 0x20, 0x30}
	driver := mocks.NewMockDriver(t)
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).
		Return(enrollableConn(t, 10019, tpl), nil).Once()

	e := newEnv(t, srv.URL, driver, testTable())

	res, err := e.enroller.Register(context.Background(), "", payload())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Student.UID != 10019 || !res.Deferred || res.DeviceID != "lab-a" {
		t.Fatalf("result = %+v", res)
	}
	if res.Student.FingerprintTemplate != base64.StdEncoding.EncodeToString(tpl) {
		t.Fatalf("template = %q", res.Student.FingerprintTemplate)
	}

	s, _ := e.store.StudentByUID(context.Background(), 10019)
	if s == nil {
		t.Fatal("student not persisted")
	}
	m, _ := e.store.MissingByUID(context.Background(), 10019)
	if m == nil || m.SyncStatus != model.SyncPending {
		t.Fatalf("missing row = %+v, want pending", m)
	}

	if v, _ := e.alloc.Value(context.Background()); v != 10019 {
		t.Fatalf("counter = %d, want 10019", v)
	}
}

func TestRegisterCounterDiscipline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	failing := func() *mocks.MockConn {
		conn := mocks.NewMockConn(t)
		conn.EXPECT().Disable(mock.Anything).Return(nil).Once()
		conn.EXPECT().SetUser(mock.Anything, mock.Anything).Return(nil).Once()
		conn.EXPECT().Enroll(mock.Anything, uint16(10019), uint8(0)).Return(nil, zk.ErrEnrollTimeout).Once()
		conn.EXPECT().Enable(mock.Anything).Return(nil).Once()
		conn.EXPECT().Close().Return(nil).Once()
		return conn
	}

	driver := mocks.NewMockDriver(t)
	// Each failed registration sweeps both scanners plus the legacy
	// single-device retry: lab-a, lab-b, lab-a again. The third
	// registration succeeds on the first scanner.
	for i := 0; i < 2; i++ {
		driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).Return(failing(), nil).Once()
		driver.EXPECT().Connect(mock.Anything, "10.0.0.12:4370", mock.Anything).Return(failing(), nil).Once()
		driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).Return(failing(), nil).Once()
	}
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).
		Return(enrollableConn(t, 10019, []byte{1}), nil).Once()

	e := newEnv(t, srv.URL, driver, testTable())

	for i := 0; i < 2; i++ {
		if _, err := e.enroller.Register(context.Background(), "", payload()); !errors.Is(err, zk.ErrEnrollTimeout) {
			t.Fatalf("attempt %d err = %v, want ErrEnrollTimeout", i+1, err)
		}
		if v, _ := e.alloc.Value(context.Background()); v != 10018 {
			t.Fatalf("counter after failed attempt %d = %d, want 10018", i+1, v)
		}
	}

	if _, err := e.enroller.Register(context.Background(), "", payload()); err != nil {
		t.Fatalf("third Register: %v", err)
	}
	if v, _ := e.alloc.Value(context.Background()); v != 10019 {
		t.Fatalf("counter = %d, want 10019", v)
	}
}

func TestRegisterOnlineFollowsRemoteIdentity(t *testing.T) {
	rs := &remoteScript{nextUID: 20001}
	srv := rs.serve()
	defer srv.Close()

	driver := mocks.NewMockDriver(t)
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).
		Return(enrollableConn(t, 20001, []byte{1}), nil).Once()

	e := newEnv(t, srv.URL, driver, testTable())

	res, err := e.enroller.Register(context.Background(), "Bearer token", payload())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Student.UID != 20001 || res.Deferred {
		t.Fatalf("result = %+v", res)
	}

	if got := rs.created(); len(got) != 1 || got[0].UID != 20001 {
		t.Fatalf("remote creates = %+v", got)
	}
	if m, _ := e.store.MissingByUID(context.Background(), 20001); m != nil {
		t.Fatalf("online registration queued for sync: %+v", m)
	}

	// Sync(20000) then Increment: the counter tracks the remote.
	if v, _ := e.alloc.Value(context.Background()); v != 20001 {
		t.Fatalf("counter = %d, want 20001", v)
	}
}

func TestRegisterBlacklistCleansDevices(t *testing.T) {
	rs := &remoteScript{nextUID: 20001}
	rs.createFn = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`Student is blacklisted`))
	}
	srv := rs.serve()
	defer srv.Close()

	deleting := func() *mocks.MockConn {
		conn := mocks.NewMockConn(t)
		conn.EXPECT().Disable(mock.Anything).Return(nil).Once()
		conn.EXPECT().DeleteUser(mock.Anything, uint16(20001)).Return(nil).Once()
		conn.EXPECT().Enable(mock.Anything).Return(nil).Once()
		conn.EXPECT().Close().Return(nil).Once()
		return conn
	}

	driver := mocks.NewMockDriver(t)
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).
		Return(enrollableConn(t, 20001, []byte{1}), nil).Once()
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).Return(deleting(), nil).Once()
	driver.EXPECT().Connect(mock.Anything, "10.0.0.12:4370", mock.Anything).Return(deleting(), nil).Once()

	e := newEnv(t, srv.URL, driver, testTable())

	_, err := e.enroller.Register(context.Background(), "Bearer token", payload())
	if !errors.Is(err, enroll.ErrBlacklisted) {
		t.Fatalf("err = %v, want ErrBlacklisted", err)
	}

	if s, _ := e.store.StudentByUID(context.Background(), 20001); s != nil {
		t.Fatal("blacklisted student persisted locally")
	}
}

func TestRegisterUserExistsDeletesAndRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	stale := mocks.NewMockConn(t)
	stale.EXPECT().Disable(mock.Anything).Return(nil).Once()
	stale.EXPECT().SetUser(mock.Anything, mock.Anything).Return(nil).Once()
	stale.EXPECT().Enroll(mock.Anything, uint16(10019), uint8(0)).Return(nil, zk.ErrUserExists).Once()
	stale.EXPECT().Enable(mock.Anything).Return(nil).Once()
	stale.EXPECT().Close().Return(nil).Once()

	deleting := func() *mocks.MockConn {
		conn := mocks.NewMockConn(t)
		conn.EXPECT().Disable(mock.Anything).Return(nil).Once()
		conn.EXPECT().DeleteUser(mock.Anything, uint16(10019)).Return(nil).Once()
		conn.EXPECT().Enable(mock.Anything).Return(nil).Once()
		conn.EXPECT().Close().Return(nil).Once()
		return conn
	}

	driver := mocks.NewMockDriver(t)
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).Return(stale, nil).Once()
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).Return(deleting(), nil).Once()
	driver.EXPECT().Connect(mock.Anything, "10.0.0.12:4370", mock.Anything).Return(deleting(), nil).Once()
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).
		Return(enrollableConn(t, 10019, []byte{7}), nil).Once()

	e := newEnv(t, srv.URL, driver, testTable())

	res, err := e.enroller.Register(context.Background(), "", payload())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Student.UID != 10019 {
		t.Fatalf("uid = %d", res.Student.UID)
	}
}

func TestRegisterRefusesBusyDevices(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	// Both scanners hold long-lived capture sessions, so every
	// per-operation acquire must be refused.
	capture := func() *mocks.MockConn {
		conn := mocks.NewMockConn(t)
		conn.EXPECT().Close().Return(nil).Once()
		return conn
	}

	driver := mocks.NewMockDriver(t)
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).Return(capture(), nil).Once()
	driver.EXPECT().Connect(mock.Anything, "10.0.0.12:4370", mock.Anything).Return(capture(), nil).Once()

	mem := store.NewMem()
	log := quietLogger()
	reg := device.NewRegistry(driver, testTable(), 0, log)
	for _, id := range []string{"lab-a", "lab-b"} {
		if err := reg.Connect(context.Background(), id); err != nil {
			t.Fatalf("Connect(%s): %v", id, err)
		}
	}

	alloc := ident.NewAllocator(mem)
	e := enroll.NewEnroller(reg, alloc, remote.NewClient(srv.URL, log), remote.NewProbe(srv.URL, log), mem, nil, log)

	_, err := e.Register(context.Background(), "", payload())
	if !errors.Is(err, device.ErrDeviceBusy) {
		t.Fatalf("err = %v, want ErrDeviceBusy", err)
	}
	if v, _ := alloc.Value(context.Background()); v != 10018 {
		t.Fatalf("counter = %d, want untouched 10018", v)
	}

	reg.DisconnectAll()
}

func TestRegisterValidation(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	e := newEnv(t, srv.URL, mocks.NewMockDriver(t), testTable())

	_, err := e.enroller.Register(context.Background(), "", &model.RegisterPayload{FirstName: "A"})
	if !errors.Is(err, model.ErrMissingName) {
		t.Fatalf("err = %v, want ErrMissingName", err)
	}
}

func TestDeleteFingerprint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	deleting := func() *mocks.MockConn {
		conn := mocks.NewMockConn(t)
		conn.EXPECT().Disable(mock.Anything).Return(nil).Once()
		conn.EXPECT().DeleteUser(mock.Anything, uint16(10019)).Return(nil).Once()
		conn.EXPECT().Enable(mock.Anything).Return(nil).Once()
		conn.EXPECT().Close().Return(nil).Once()
		return conn
	}

	driver := mocks.NewMockDriver(t)
	driver.EXPECT().Connect(mock.Anything, "10.0.0.11:4370", mock.Anything).Return(deleting(), nil).Once()
	driver.EXPECT().Connect(mock.Anything, "10.0.0.12:4370", mock.Anything).Return(deleting(), nil).Once()

	e := newEnv(t, srv.URL, driver, testTable())

	s := model.NewStudent(10019, payload())
	_ = e.store.InsertStudent(context.Background(), s)
	_ = e.store.InsertMissing(context.Background(), model.MissingFromStudent(s, time.Now()))

	report, err := e.enroller.DeleteFingerprint(context.Background(), 10019)
	if err != nil {
		t.Fatalf("DeleteFingerprint: %v", err)
	}
	if len(report.Deleted) != 2 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if got, _ := e.store.StudentByUID(context.Background(), 10019); got != nil {
		t.Fatal("student still in store")
	}
	if got, _ := e.store.MissingByUID(context.Background(), 10019); got != nil {
		t.Fatal("sync row still in store")
	}
}
