package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stroke-code-server/internal/domain"
)

// MockDispatcher is a mock implementation of the Dispatcher interface
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) CodeActivated(ctx context.Context, at time.Time) error {
	return m.Called(ctx, at).Error(0)
}

func (m *MockDispatcher) CaseSummary(ctx context.Context, c domain.Case) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockDispatcher) Test(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDispatcher) Recipients() domain.Recipients {
	return m.Called().Get(0).(domain.Recipients)
}

func (m *MockDispatcher) SetRecipients(recipients domain.Recipients) {
	m.Called(recipients)
}

type sessionFixture struct {
	session    *Session
	clock      *fakeClock
	dispatcher *MockDispatcher
	hook       *test.Hook
}

func newSessionFixture(t *testing.T) sessionFixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	clock := newFakeClock()
	engine := NewEligibilityEngine(logger)
	recorder := NewCaseRecorder(engine, logger, WithClock(clock), WithIDGenerator(sequentialIDs()))
	dispatcher := new(MockDispatcher)
	session := NewSession(engine, NewProtocolTimer(clock, logger), recorder, dispatcher, logger)
	return sessionFixture{session: session, clock: clock, dispatcher: dispatcher, hook: hook}
}

func fillSession(t *testing.T, s *Session) {
	t.Helper()
	in := completeInput(t)
	require.NoError(t, s.SetPatient(in.Patient))
	s.SetNihss(in.Nihss)
	s.SetAspects(in.Aspects)
	s.SetChecklist(in.Checklist)
	require.NoError(t, s.SetCriteria(in.Criteria))
}

func TestSession_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("Starts the clock and announces the code", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CodeActivated", ctx, f.clock.Now()).Return(nil)

		snap, err := f.session.Activate(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ClockRunning, snap.State)
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("Notification failure does not undo activation", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CodeActivated", ctx, mock.Anything).Return(errors.New("unreachable"))

		snap, err := f.session.Activate(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ClockRunning, snap.State)

		entry := f.hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.WarnLevel, entry.Level)
	})

	t.Run("Second activation fails", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CodeActivated", ctx, mock.Anything).Return(nil).Once()

		_, err := f.session.Activate(ctx)
		require.NoError(t, err)
		_, err = f.session.Activate(ctx)
		assert.True(t, errors.Is(err, domain.ErrInvalidState))
	})
}

func TestSession_Finalize(t *testing.T) {
	ctx := context.Background()

	t.Run("Records the case and stops the clock", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CodeActivated", ctx, mock.Anything).Return(nil)
		f.dispatcher.On("CaseSummary", ctx, mock.MatchedBy(func(c domain.Case) bool { return c.ElapsedSeconds == 900 })).Return(nil)

		_, err := f.session.Activate(ctx)
		require.NoError(t, err)
		fillSession(t, f.session)
		f.clock.Advance(15 * time.Minute)

		c, err := f.session.Finalize(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(900), c.ElapsedSeconds)
		assert.Equal(t, domain.ClockFinalized, f.session.Timer().State())

		snap := f.session.Snapshot()
		assert.True(t, snap.Finalized)
		assert.Equal(t, c.ID, snap.CaseID)
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("Incomplete case keeps the clock running", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CodeActivated", ctx, mock.Anything).Return(nil)

		_, err := f.session.Activate(ctx)
		require.NoError(t, err)

		_, err = f.session.Finalize(ctx)
		var incomplete *domain.IncompleteCaseError
		require.True(t, errors.As(err, &incomplete))
		assert.Len(t, incomplete.Missing, 4)
		assert.Equal(t, domain.ClockRunning, f.session.Timer().State())
		f.dispatcher.AssertNotCalled(t, "CaseSummary", mock.Anything, mock.Anything)
	})

	t.Run("Second finalize before reset fails", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CaseSummary", ctx, mock.Anything).Return(nil)
		fillSession(t, f.session)

		_, err := f.session.Finalize(ctx)
		require.NoError(t, err)
		_, err = f.session.Finalize(ctx)
		assert.True(t, errors.Is(err, domain.ErrCaseAlreadyFinalized))
		assert.Equal(t, 1, f.session.Recorder().Len())
	})

	t.Run("Finalize without activation records zero elapsed", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CaseSummary", ctx, mock.Anything).Return(nil)
		fillSession(t, f.session)

		c, err := f.session.Finalize(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), c.ElapsedSeconds)
		assert.Equal(t, domain.ClockIdle, f.session.Timer().State())
	})

	t.Run("Activation after an idle finalize requires reset", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CaseSummary", ctx, mock.Anything).Return(nil)
		f.dispatcher.On("CodeActivated", ctx, mock.Anything).Return(nil)
		fillSession(t, f.session)

		_, err := f.session.Finalize(ctx)
		require.NoError(t, err)

		snap, err := f.session.Activate(ctx)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		assert.Equal(t, domain.ClockIdle, snap.State)
		f.dispatcher.AssertNotCalled(t, "CodeActivated", mock.Anything, mock.Anything)

		f.session.Reset()
		fillSession(t, f.session)
		_, err = f.session.Activate(ctx)
		require.NoError(t, err)
		f.clock.Advance(5 * time.Minute)

		c, err := f.session.Finalize(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(300), c.ElapsedSeconds)
		assert.Equal(t, domain.ClockFinalized, f.session.Timer().State())
		assert.Equal(t, 2, f.session.Recorder().Len())
	})

	t.Run("Case and stopped clock agree on elapsed", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CodeActivated", ctx, mock.Anything).Return(nil)
		f.dispatcher.On("CaseSummary", ctx, mock.Anything).Return(nil)

		_, err := f.session.Activate(ctx)
		require.NoError(t, err)
		fillSession(t, f.session)
		f.clock.Advance(25*time.Minute + 19*time.Second)

		c, err := f.session.Finalize(ctx)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
		assert.Equal(t, c.ElapsedSeconds, f.session.Timer().Elapsed())
		assert.Equal(t, c.ElapsedSeconds, f.session.Snapshot().Clock.ElapsedSeconds)
	})

	t.Run("Summary failure is not fatal", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CaseSummary", ctx, mock.Anything).Return(errors.New("timeout"))
		fillSession(t, f.session)

		_, err := f.session.Finalize(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, f.session.Recorder().Len())
	})

	t.Run("Concurrent finalize records one case", func(t *testing.T) {
		f := newSessionFixture(t)
		f.dispatcher.On("CaseSummary", ctx, mock.Anything).Return(nil)
		fillSession(t, f.session)

		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			go func() {
				_, err := f.session.Finalize(ctx)
				results <- err
			}()
		}
		succeeded := 0
		for i := 0; i < 8; i++ {
			if err := <-results; err == nil {
				succeeded++
			} else {
				assert.True(t, errors.Is(err, domain.ErrCaseAlreadyFinalized))
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, f.session.Recorder().Len())
	})
}

func TestSession_Reset(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.dispatcher.On("CodeActivated", ctx, mock.Anything).Return(nil)
	f.dispatcher.On("CaseSummary", ctx, mock.Anything).Return(nil)

	_, err := f.session.Activate(ctx)
	require.NoError(t, err)
	fillSession(t, f.session)
	_, err = f.session.Finalize(ctx)
	require.NoError(t, err)

	f.session.Reset()

	snap := f.session.Snapshot()
	assert.False(t, snap.Finalized)
	assert.Equal(t, 0, snap.NihssTotal)
	assert.Equal(t, 10, snap.AspectsScore)
	assert.Nil(t, snap.Patient.Age)
	assert.Equal(t, domain.ClockIdle, snap.Clock.State)
	assert.Equal(t, 1, f.session.Recorder().Len(), "reset keeps history")

	_, err = f.session.Activate(ctx)
	require.NoError(t, err)
}

func TestSession_Inputs(t *testing.T) {
	f := newSessionFixture(t)

	t.Run("Rejects invalid patient data", func(t *testing.T) {
		age := -1
		err := f.session.SetPatient(domain.PatientData{Age: &age})
		var validation *domain.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, "age", validation.Field)
	})

	t.Run("Rejects unknown time window", func(t *testing.T) {
		err := f.session.SetCriteria(domain.ThrombectomyCriteria{TimeWindow: "12h"})
		assert.Error(t, err)
	})

	t.Run("Rejects out-of-range subscore", func(t *testing.T) {
		assert.Error(t, f.session.SetNihssItem(domain.NihssGaze, 3))
		require.NoError(t, f.session.SetNihssItem(domain.NihssGaze, 2))
		assert.Equal(t, 2, f.session.Snapshot().NihssTotal)
	})

	t.Run("Snapshot is a copy", func(t *testing.T) {
		weight := 72.0
		require.NoError(t, f.session.SetPatient(domain.PatientData{Weight: &weight}))
		weight = 10

		snap := f.session.Snapshot()
		require.NotNil(t, snap.Patient.Weight)
		assert.Equal(t, 72.0, *snap.Patient.Weight)
		*snap.Patient.Weight = 1
		assert.Equal(t, 72.0, *f.session.Snapshot().Patient.Weight)
	})

	t.Run("Dose follows weight", func(t *testing.T) {
		dose := f.session.Dose()
		require.NotNil(t, dose)
		assert.InDelta(t, 64.8, dose.Total, 1e-9)
	})
}

func TestSession_DoseView(t *testing.T) {
	t.Run("Restricted until thrombolysis is eligible", func(t *testing.T) {
		f := newSessionFixture(t)
		weight := 70.0
		require.NoError(t, f.session.SetPatient(domain.PatientData{Weight: &weight}))

		view := f.session.DoseView()
		assert.True(t, view.Restricted)
		assert.Nil(t, view.RtpaDose)
		assert.Empty(t, view.Administration)
		require.NotEmpty(t, view.Reasons)
		assert.Equal(t, ReasonTimeWindowNotConfirmed, view.Reasons[0].Code)

		snap := f.session.Snapshot()
		assert.False(t, snap.Access[SectionRtpa])
		assert.True(t, snap.Access[SectionPatient])
	})

	t.Run("Eligible patient gets dose and administration steps", func(t *testing.T) {
		f := newSessionFixture(t)
		fillSession(t, f.session)

		view := f.session.DoseView()
		assert.False(t, view.Restricted)
		require.NotNil(t, view.RtpaDose)
		assert.InDelta(t, 63.0, view.RtpaDose.Total, 1e-9)
		assert.Len(t, view.Administration, 5)
		assert.True(t, f.session.Snapshot().Access[SectionRtpa])
	})
}

func TestSession_Eligibility(t *testing.T) {
	f := newSessionFixture(t)
	fillSession(t, f.session)

	view := f.session.Eligibility()
	assert.True(t, view.Thrombolysis.Eligible)
	assert.True(t, view.Thrombectomy.Eligible)
	require.Len(t, view.Recommendations, 2)
	assert.Equal(t, RecommendationUrgentThrombectomy, view.Recommendations[0].Code)
	assert.Equal(t, RecommendationCombinedTherapy, view.Recommendations[1].Code)
}

func TestSession_SendTest(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.dispatcher.On("Test", ctx).Return(errors.New("missing recipients"))

	assert.EqualError(t, f.session.SendTest(ctx), "missing recipients")

	logger, _ := test.NewNullLogger()
	engine := NewEligibilityEngine(logger)
	bare := NewSession(engine, NewProtocolTimer(nil, logger), NewCaseRecorder(engine, logger), nil, logger)
	assert.Error(t, bare.SendTest(ctx))
	_, err := bare.Recipients()
	assert.Error(t, err)
	assert.Error(t, bare.SetRecipients(domain.Recipients{}))
}

func TestSession_Recipients(t *testing.T) {
	f := newSessionFixture(t)
	updated := domain.Recipients{Neurologo: "guardia@hospital.es"}
	f.dispatcher.On("SetRecipients", updated).Return()
	f.dispatcher.On("Recipients").Return(updated)

	require.NoError(t, f.session.SetRecipients(updated))
	got, err := f.session.Recipients()
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	f.dispatcher.AssertExpectations(t)
}
