package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type donationRepoStub struct {
	donations map[string]*models.Donation
	// raced makes Review report a lost race.
	raced bool
}

func newDonationRepoStub() *donationRepoStub {
	return &donationRepoStub{donations: map[string]*models.Donation{}}
}

func (r *donationRepoStub) Create(ctx context.Context, d *models.Donation) error {
	d.ID = "d" + strconv.Itoa(len(r.donations)+1)
	d.CreatedAt = time.Now()
	copied := *d
	r.donations[d.ID] = &copied
	return nil
}

func (r *donationRepoStub) List(ctx context.Context, filter models.ReviewFilter) ([]models.Donation, int, error) {
	var out []models.Donation
	for _, d := range r.donations {
		if filter.Status == "" || d.Status == filter.Status {
			out = append(out, *d)
		}
	}
	return out, len(out), nil
}

func (r *donationRepoStub) FindByID(ctx context.Context, id string) (*models.Donation, error) {
	d, ok := r.donations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *d
	return &copied, nil
}

func (r *donationRepoStub) Review(ctx context.Context, id string, status models.ReviewStatus, note *string, at time.Time) (bool, error) {
	d, ok := r.donations[id]
	if !ok || d.Status != models.StatusPending || r.raced {
		return false, nil
	}
	d.Status = status
	d.AdminNote = note
	d.VerifiedAt = &at
	return true, nil
}

type joinRepoStub struct {
	joins map[string]*models.WhatsAppJoin
}

func (r *joinRepoStub) Create(ctx context.Context, j *models.WhatsAppJoin) error {
	j.ID = "j" + strconv.Itoa(len(r.joins)+1)
	copied := *j
	r.joins[j.ID] = &copied
	return nil
}

func (r *joinRepoStub) List(ctx context.Context, filter models.ReviewFilter) ([]models.WhatsAppJoin, int, error) {
	return nil, 0, nil
}

func (r *joinRepoStub) Review(ctx context.Context, id string, status models.ReviewStatus) (bool, error) {
	j, ok := r.joins[id]
	if !ok || j.Status != models.StatusPending {
		return false, nil
	}
	j.Status = status
	return true, nil
}

func (r *joinRepoStub) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := r.joins[id]
	return ok, nil
}

func floatPtr(v float64) *float64 { return &v }

func TestDonationCreateValidation(t *testing.T) {
	svc := NewDonationService(newDonationRepoStub(), NewCacheService(nil, nil, 0, nil, false), nil, nil, nil)

	_, err := svc.Create(context.Background(), models.DonationRequest{PaymentMethod: "rocket", Amount: floatPtr(0)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, MsgNamePhoneRequired, appErr.Details["donor_name"])
	assert.Equal(t, MsgNamePhoneRequired, appErr.Details["donor_phone"])
	assert.Equal(t, MsgPaymentMethodInvalid, appErr.Details["payment_method"])
	assert.Equal(t, MsgTransactionIDRequired, appErr.Details["transaction_id"])
	assert.Equal(t, MsgAmountInvalid, appErr.Details["amount"])
}

func TestDonationCreateAndReview(t *testing.T) {
	repo := newDonationRepoStub()
	audit := &auditStub{}
	svc := NewDonationService(repo, NewCacheService(nil, nil, 0, nil, false), audit, nil, nil)

	donation, err := svc.Create(context.Background(), models.DonationRequest{
		DonorName:     " করিম ",
		DonorPhone:    "01700000000",
		PaymentMethod: "BKASH",
		TransactionID: " TX1 ",
		Amount:        floatPtr(500),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, donation.Status)
	assert.Equal(t, models.PaymentBkash, donation.PaymentMethod)
	assert.Equal(t, "TX1", donation.TransactionID)

	reviewed, err := svc.Review(context.Background(), donation.ID, models.ReviewRequest{Status: models.StatusVerified, AdminNote: stringPtr(" ok ")}, sectionAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, reviewed.Status)
	require.NotNil(t, reviewed.VerifiedAt)
	assert.Equal(t, "ok", *reviewed.AdminNote)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionDonationReview, audit.logs[0].Action)

	_, err = svc.Review(context.Background(), donation.ID, models.ReviewRequest{Status: models.StatusRejected}, sectionAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidStateTransition))

	_, err = svc.Review(context.Background(), "nope", models.ReviewRequest{Status: models.StatusRejected}, sectionAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Review(context.Background(), donation.ID, models.ReviewRequest{Status: models.StatusPending}, sectionAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDonationReviewLostRace(t *testing.T) {
	repo := newDonationRepoStub()
	svc := NewDonationService(repo, NewCacheService(nil, nil, 0, nil, false), nil, nil, nil)
	donation, err := svc.Create(context.Background(), models.DonationRequest{DonorName: "a", DonorPhone: "1", PaymentMethod: models.PaymentNagad, TransactionID: "T"})
	require.NoError(t, err)

	repo.raced = true
	_, err = svc.Review(context.Background(), donation.ID, models.ReviewRequest{Status: models.StatusVerified}, sectionAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidStateTransition))
}

func TestDonationListRejectsUnknownStatus(t *testing.T) {
	svc := NewDonationService(newDonationRepoStub(), NewCacheService(nil, nil, 0, nil, false), nil, nil, nil)

	_, _, err := svc.List(context.Background(), models.ReviewFilter{Status: "lost"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	rows, page, err := svc.List(context.Background(), models.ReviewFilter{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Equal(t, 1, page.Page)
}

func TestWhatsAppJoinLinks(t *testing.T) {
	repo := &joinRepoStub{joins: map[string]*models.WhatsAppJoin{}}
	settings := &settingsStoreStub{values: map[string]string{}}
	svc := NewWhatsAppJoinService(repo, settings, NewCacheService(nil, nil, 0, nil, false), nil, nil, nil, WhatsAppJoinServiceConfig{GroupLink: "https://chat.example/env"})

	free, err := svc.Join(context.Background(), models.WhatsAppJoinRequest{Name: "রহিম", Phone: "01800000000"})
	require.NoError(t, err)
	assert.Equal(t, models.JoinFree, free.Join.JoinType)
	assert.Equal(t, "https://chat.example/env", free.GroupLink)
	assert.Empty(t, free.DonationLink)

	settings.values[models.SettingWhatsAppLink] = "https://chat.example/setting"
	free, err = svc.Join(context.Background(), models.WhatsAppJoinRequest{Name: "রহিম", Phone: "01800000000", JoinType: models.JoinFree})
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example/setting", free.GroupLink)

	paid, err := svc.Join(context.Background(), models.WhatsAppJoinRequest{Name: "রহিম", Phone: "01800000000", JoinType: models.JoinPaid})
	require.NoError(t, err)
	assert.Empty(t, paid.GroupLink)
	assert.Equal(t, "/hadiya", paid.DonationLink)

	_, err = svc.Join(context.Background(), models.WhatsAppJoinRequest{Name: " "})
	require.Error(t, err)
	assert.Equal(t, MsgNamePhoneRequired, appErrors.FromError(err).Message)
	assert.Len(t, repo.joins, 3)
}

func TestWhatsAppJoinReview(t *testing.T) {
	repo := &joinRepoStub{joins: map[string]*models.WhatsAppJoin{
		"j1": {ID: "j1", Status: models.StatusPending},
	}}
	audit := &auditStub{}
	svc := NewWhatsAppJoinService(repo, nil, NewCacheService(nil, nil, 0, nil, false), audit, nil, nil, WhatsAppJoinServiceConfig{})

	require.NoError(t, svc.Review(context.Background(), "j1", models.ReviewRequest{Status: models.StatusVerified}, sectionAdmin))
	assert.Equal(t, models.StatusVerified, repo.joins["j1"].Status)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionJoinReview, audit.logs[0].Action)

	err := svc.Review(context.Background(), "j1", models.ReviewRequest{Status: models.StatusRejected}, sectionAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidStateTransition))

	err = svc.Review(context.Background(), "j9", models.ReviewRequest{Status: models.StatusRejected}, sectionAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
