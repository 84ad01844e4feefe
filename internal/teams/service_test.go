package teams

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	emails []services.EmailMessage
}

func (n *recordingNotifier) EnqueueEmail(_ context.Context, msg services.EmailMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, msg)
	return nil
}

func setup(t *testing.T) (*gorm.DB, *Service, *recordingNotifier, uint) {
	t.Helper()
	database := testutil.NewDB(t)
	notifier := &recordingNotifier{}
	org := testutil.CreateOrganizer(t, database, "Club")
	event := testutil.CreateEvent(t, database, org.ID)
	return database, NewService(database, notifier), notifier, event.ID
}

func enrolled(t *testing.T, database *gorm.DB, eventID uint, n int) []identity.Participant {
	t.Helper()
	out := make([]identity.Participant, n)
	for i := range out {
		out[i] = testutil.CreateParticipant(t, database, "Member")
		testutil.Enroll(t, database, eventID, out[i].ID)
	}
	return out
}

func TestCreateTeam(t *testing.T) {
	database, svc, _, eventID := setup(t)
	ctx := context.Background()
	people := enrolled(t, database, eventID, 1)

	team, err := svc.Create(ctx, people[0], eventID, "  Rockets ", 3)
	require.NoError(t, err)
	assert.Equal(t, "Rockets", team.Name)
	assert.Len(t, team.InviteCode, inviteCodeLength)
	assert.Equal(t, 1, team.MemberCount)
	assert.Equal(t, models.TeamForming, team.Status)
	require.Len(t, team.Members, 1)
	assert.Equal(t, models.MemberJoined, team.Members[0].Status)

	_, err = svc.Create(ctx, people[0], eventID, "Again", 3)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInTeam)
}

func TestCreateTeamValidation(t *testing.T) {
	database, svc, _, eventID := setup(t)
	ctx := context.Background()
	people := enrolled(t, database, eventID, 1)

	_, err := svc.Create(ctx, people[0], eventID, "Solo", 1)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	_, err = svc.Create(ctx, people[0], eventID, "Crowd", MaxSize+1)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	_, err = svc.Create(ctx, people[0], eventID, " ", 2)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	stranger := testutil.CreateParticipant(t, database, "Stranger")
	_, err = svc.Create(ctx, stranger, eventID, "Nope", 2)
	assert.ErrorIs(t, err, apperrors.ErrNotRegistered)

	org := testutil.CreateOrganizer(t, database, "Shop")
	merch := testutil.CreateEvent(t, database, org.ID, testutil.WithVariant("Hoodie", "M", 3))
	_, err = svc.Create(ctx, people[0], merch.ID, "Merch", 2)
	assert.ErrorIs(t, err, apperrors.ErrTeamsNotAllowed)
}

func TestJoinCompletesExactlyAtTarget(t *testing.T) {
	database, svc, _, eventID := setup(t)
	ctx := context.Background()
	people := enrolled(t, database, eventID, 4)

	team, err := svc.Create(ctx, people[0], eventID, "Trio", 3)
	require.NoError(t, err)

	team, err = svc.Join(ctx, people[1], eventID, team.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, 2, team.MemberCount)
	assert.Equal(t, models.TeamForming, team.Status)

	_, err = svc.Join(ctx, people[1], eventID, team.InviteCode)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInTeam)

	// codes are matched case-insensitively
	team, err = svc.Join(ctx, people[2], eventID, " "+strings.ToLower(team.InviteCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, 3, team.MemberCount)
	assert.Equal(t, models.TeamCompleted, team.Status)

	_, err = svc.Join(ctx, people[3], eventID, team.InviteCode)
	assert.ErrorIs(t, err, apperrors.ErrTeamFull)

	_, err = svc.Join(ctx, people[3], eventID, "NOPE0000")
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}

func TestConcurrentJoinsNeverOverfill(t *testing.T) {
	database, svc, _, eventID := setup(t)
	ctx := context.Background()
	people := enrolled(t, database, eventID, 9)

	team, err := svc.Create(ctx, people[0], eventID, "Pair", 2)
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for _, p := range people[1:] {
		wg.Add(1)
		go func(p identity.Participant) {
			defer wg.Done()
			_, err := svc.Join(ctx, p, eventID, team.InviteCode)
			if err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrTeamFull)
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 1, joined)

	reloaded, err := svc.ForParticipant(ctx, people[0], eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.MemberCount)
	assert.Len(t, reloaded.Members, 2)
	assert.Equal(t, models.TeamCompleted, reloaded.Status)
}

func TestInviteThenJoin(t *testing.T) {
	database, svc, notifier, eventID := setup(t)
	ctx := context.Background()
	people := enrolled(t, database, eventID, 2)

	team, err := svc.Create(ctx, people[0], eventID, "Duo", 2)
	require.NoError(t, err)

	_, err = svc.Invite(ctx, people[1], team.ID, people[0].Email)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	_, err = svc.Invite(ctx, people[0], team.ID, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)

	member, err := svc.Invite(ctx, people[0], team.ID, "  "+people[1].Email)
	require.NoError(t, err)
	assert.Equal(t, models.MemberInvited, member.Status)

	require.Len(t, notifier.emails, 1)
	assert.Equal(t, people[1].Email, notifier.emails[0].To)
	assert.Contains(t, notifier.emails[0].Text, team.InviteCode)

	_, err = svc.ForParticipant(ctx, people[1], eventID)
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)

	// an invitation does not count toward the size
	listed, err := svc.List(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1, listed[0].MemberCount)

	joined, err := svc.Join(ctx, people[1], eventID, team.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, models.TeamCompleted, joined.Status)
	require.Len(t, joined.Members, 2)
	for _, m := range joined.Members {
		assert.Equal(t, models.MemberJoined, m.Status)
	}

	_, err = svc.Invite(ctx, people[0], team.ID, "someone@example.com")
	assert.ErrorIs(t, err, apperrors.ErrTeamFull)
}

func TestInviteRequiresInviteeRegistration(t *testing.T) {
	database, svc, notifier, eventID := setup(t)
	ctx := context.Background()
	people := enrolled(t, database, eventID, 1)
	outsider := testutil.CreateParticipant(t, database, "Outsider")

	team, err := svc.Create(ctx, people[0], eventID, "Duo", 2)
	require.NoError(t, err)

	_, err = svc.Invite(ctx, people[0], team.ID, outsider.Email)
	assert.ErrorIs(t, err, apperrors.ErrNotRegistered)
	assert.Empty(t, notifier.emails)

	var invited int64
	require.NoError(t, database.Model(&models.TeamMember{}).
		Where("participant_id = ?", outsider.ID).Count(&invited).Error)
	assert.Zero(t, invited)
}
