package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNotifier) EnqueueWebhook(_ context.Context, url string, _ services.DiscordWebhookRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return nil
}

func newEvent() NewEvent {
	now := time.Now()
	return NewEvent{
		Name:                 "Hackathon",
		Type:                 models.EventTypeNormal,
		RegistrationDeadline: now.Add(24 * time.Hour),
		StartAt:              now.Add(48 * time.Hour),
		EndAt:                now.Add(72 * time.Hour),
		RegistrationLimit:    10,
		CustomForm: []models.FormField{
			{Label: "Team Name", Type: models.FieldTypeText, Required: true},
		},
	}
}

func TestCreateStartsInDraft(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	org := testutil.CreateOrganizer(t, database, "Club")

	event, err := svc.Create(context.Background(), org, newEvent())
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDraft, event.Status)
	assert.Equal(t, org.ID, event.OrganizerID)
	assert.Len(t, event.CustomForm, 1)
}

func TestCreateValidates(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	org := testutil.CreateOrganizer(t, database, "Club")
	ctx := context.Background()

	in := newEvent()
	in.Type = "concert"
	_, err := svc.Create(ctx, org, in)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	in = newEvent()
	in.RegistrationDeadline = in.EndAt.Add(time.Hour)
	_, err = svc.Create(ctx, org, in)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	in = newEvent()
	in.RegistrationLimit = 0
	_, err = svc.Create(ctx, org, in)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	in = newEvent()
	in.CustomForm = []models.FormField{{Label: "Size", Type: models.FieldTypeDropdown}}
	_, err = svc.Create(ctx, org, in)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	in = newEvent()
	in.Type = models.EventTypeMerchandise
	_, err = svc.Create(ctx, org, in)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput), "merchandise needs variants")
}

func TestCreateMerchandiseWithVariants(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	org := testutil.CreateOrganizer(t, database, "Store")

	in := newEvent()
	in.Type = models.EventTypeMerchandise
	in.Variants = []VariantInput{
		{ProductName: "Hoodie", Size: "M", Stock: 5},
		{ProductName: "Hoodie", Size: "L", Stock: 3},
	}

	event, err := svc.Create(context.Background(), org, in)
	require.NoError(t, err)
	assert.Equal(t, 1, event.PurchaseLimit)
	assert.Empty(t, event.CustomForm)

	reloaded := testutil.Reload(t, database, event.ID)
	assert.Len(t, reloaded.Variants, 2)
}

func TestChangeStatusFollowsStateMachine(t *testing.T) {
	database := testutil.NewDB(t)
	notifier := &recordingNotifier{}
	svc := NewService(database, notifier)
	ctx := context.Background()

	org := testutil.CreateOrganizer(t, database, "Club")
	org.DiscordWebhook = "https://discord.example.com/hook"
	event := testutil.CreateEvent(t, database, org.ID, testutil.WithStatus(models.EventStatusDraft))

	_, err := svc.ChangeStatus(ctx, org, event.ID, models.EventStatusOngoing)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStatusTransition))

	updated, err := svc.ChangeStatus(ctx, org, event.ID, models.EventStatusPublished)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusPublished, updated.Status)
	assert.Equal(t, []string{org.DiscordWebhook}, notifier.urls)

	_, err = svc.ChangeStatus(ctx, org, event.ID, models.EventStatusClosed)
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, org, event.ID, models.EventStatusPublished)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStatusTransition))
}

func TestChangeStatusRequiresOwner(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})

	owner := testutil.CreateOrganizer(t, database, "Owner")
	other := testutil.CreateOrganizer(t, database, "Other")
	event := testutil.CreateEvent(t, database, owner.ID, testutil.WithStatus(models.EventStatusDraft))

	_, err := svc.ChangeStatus(context.Background(), other, event.ID, models.EventStatusPublished)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	_, err = svc.ChangeStatus(context.Background(), owner, 9999, models.EventStatusPublished)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestConcurrentTransitionsOnlyOneWins(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	org := testutil.CreateOrganizer(t, database, "Club")
	event := testutil.CreateEvent(t, database, org.ID)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, to := range []string{models.EventStatusOngoing, models.EventStatusClosed} {
		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			_, err := svc.ChangeStatus(context.Background(), org, event.ID, to)
			results <- err
		}(to)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStatusTransition))
	}
	assert.Equal(t, 1, succeeded)
}

func TestUpdateLockedOnceRegistrationsExist(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	ctx := context.Background()

	org := testutil.CreateOrganizer(t, database, "Club")
	event := testutil.CreateEvent(t, database, org.ID)

	name := "Renamed"
	updated, err := svc.Update(ctx, org, event.ID, EventUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	require.NoError(t, database.Model(&models.Event{}).Where("id = ?", event.ID).
		Update("registration_count", 1).Error)

	name = "Again"
	_, err = svc.Update(ctx, org, event.ID, EventUpdate{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrEditLocked)

	_, err = svc.Update(ctx, org, event.ID, EventUpdate{
		CustomForm: []models.FormField{{Label: "Phone", Type: models.FieldTypeNumber}},
	})
	assert.ErrorIs(t, err, apperrors.ErrEditLocked)

	// descriptive metadata stays editable
	eligibility := "UG only"
	updated, err = svc.Update(ctx, org, event.ID, EventUpdate{Eligibility: &eligibility})
	require.NoError(t, err)
	assert.Equal(t, "UG only", updated.Eligibility)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestUpdateRejectsTerminalAndEmpty(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	org := testutil.CreateOrganizer(t, database, "Club")
	event := testutil.CreateEvent(t, database, org.ID, testutil.WithStatus(models.EventStatusClosed))

	_, err := svc.Update(context.Background(), org, event.ID, EventUpdate{})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	tags := []string{"music"}
	_, err = svc.Update(context.Background(), org, event.ID, EventUpdate{Tags: tags})
	assert.ErrorIs(t, err, apperrors.ErrEditLocked)
}

func TestGetHidesDraftsFromOthers(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	ctx := context.Background()

	owner := testutil.CreateOrganizer(t, database, "Owner")
	other := testutil.CreateOrganizer(t, database, "Other")
	participant := testutil.CreateParticipant(t, database, "P")
	admin := testutil.CreateAdmin(t, database)
	draft := testutil.CreateEvent(t, database, owner.ID, testutil.WithStatus(models.EventStatusDraft))

	_, err := svc.Get(ctx, owner, draft.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, admin, draft.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, other, draft.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	_, err = svc.Get(ctx, participant, draft.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	_, err = svc.Get(ctx, nil, draft.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestListPublishedFilters(t *testing.T) {
	database := testutil.NewDB(t)
	svc := NewService(database, &recordingNotifier{})
	ctx := context.Background()

	followed := testutil.CreateOrganizer(t, database, "Followed")
	other := testutil.CreateOrganizer(t, database, "Other")
	participant := testutil.CreateParticipant(t, database, "P")
	require.NoError(t, database.Create(&models.Follow{ParticipantID: participant.ID, OrganizerID: followed.ID}).Error)

	music := testutil.CreateEvent(t, database, followed.ID, func(e *models.Event) { e.Name = "Music Night" })
	testutil.CreateEvent(t, database, other.ID, func(e *models.Event) { e.Name = "Quiz" })
	testutil.CreateEvent(t, database, other.ID, testutil.WithStatus(models.EventStatusDraft))

	all, err := svc.ListPublished(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := svc.ListPublished(ctx, ListFilter{Search: "music"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, music.ID, found[0].ID)

	mine, err := svc.ListPublished(ctx, ListFilter{FollowedBy: participant.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, music.ID, mine[0].ID)

	byOrganizer, err := svc.ListByOrganizer(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, byOrganizer, 2)
}
