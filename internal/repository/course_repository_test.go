package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
	}
}

var surahCols = []string{"id", "surah_number", "surah_name_arabic", "surah_name_bengali", "surah_name_english", "total_ayat", "revelation_type", "pdf_url", "google_form_link", "explanation", "created_at", "updated_at"}

func TestSurahRepositoryListOrdersByNumber(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewSurahRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(surahCols).
		AddRow("s1", 96, "العلق", "আলাক্ব", "Al-Alaq", 19, "meccan", nil, "https://forms.gle/x", nil, now, now).
		AddRow("s2", 97, "القدر", "ক্বদর", "Al-Qadr", 5, "meccan", "https://cdn/97.pdf", nil, nil, now, now)
	mock.ExpectQuery("FROM surahs ORDER BY surah_number ASC").WillReturnRows(rows)

	surahs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, surahs, 2)
	assert.False(t, surahs[0].HasPDF())
	assert.True(t, surahs[0].HasExamLink())
	assert.True(t, surahs[1].HasPDF())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSurahRepositoryFindByNumberMissing(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewSurahRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM surahs WHERE surah_number = $1")).
		WithArgs(200).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByNumber(context.Background(), 200)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSurahRepositorySetPDFURLRequiresRow(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewSurahRepository(db)

	mock.ExpectExec("UPDATE surahs SET pdf_url").
		WithArgs("missing", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetPDFURL(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestQuestionRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "surah_id", "question_text", "options", "correct_answer", "points", "question_order", "created_at", "updated_at"}).
		AddRow("q1", "s1", "প্রশ্ন", []byte(`["ক","খ"]`), 1, 2, 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM questions WHERE id IN ($1,$2)")).
		WithArgs("q1", "q2").
		WillReturnRows(rows)

	questions, err := repo.FindByIDs(context.Background(), []string{"q1", "q2"})
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, models.QuestionOptions{"ক", "খ"}, questions[0].Options)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepositoryListBySurah(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM questions WHERE surah_id = $1 ORDER BY surah_id, question_order ASC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.List(context.Background(), models.QuestionFilter{SurahID: "s1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewAnswerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id, question_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.Answer{UserID: "u1", QuestionID: "q1", AnswerText: "ক"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAnswerRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewAnswerRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "question_id", "answer_text", "marks", "feedback", "marked_at", "submitted_at"}).
		AddRow("a1", "u1", "q1", "ক", 2, nil, now, now).
		AddRow("a2", "u1", "q2", "খ", nil, nil, nil, now.Add(-time.Hour))
	mock.ExpectQuery("FROM answers WHERE user_id = \\$1 ORDER BY submitted_at DESC").
		WithArgs("u1").
		WillReturnRows(rows)

	answers, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, answers, 2)
	require.NotNil(t, answers[0].Marks)
	assert.Equal(t, 2, *answers[0].Marks)
	assert.Nil(t, answers[1].Marks)
}

func TestAnswerRepositoryListSubmissionsFilters(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewAnswerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE q.surah_id = $1 AND a.marks IS NULL ORDER BY a.submitted_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM answers a")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	subs, total, err := repo.ListSubmissions(context.Background(), models.SubmissionFilter{SurahID: "s1", Ungraded: true})
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessRepositoryVerifyUserID(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewAccessRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT verify_user_id($1)")).
		WithArgs("QUR-0001").
		WillReturnRows(sqlmock.NewRows([]string{"verify_user_id"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT verify_user_id($1)")).
		WithArgs("QUR-9999").
		WillReturnRows(sqlmock.NewRows([]string{"verify_user_id"}).AddRow(nil))

	ok, err := repo.VerifyUserID(context.Background(), "QUR-0001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.VerifyUserID(context.Background(), "QUR-9999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDonationRepositoryReviewOnlyPending(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewDonationRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending'")).
		WithArgs("d1", "verified", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending'")).
		WithArgs("d1", "rejected", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Review(context.Background(), "d1", models.StatusVerified, nil, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Review(context.Background(), "d1", models.StatusRejected, nil, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhatsAppJoinRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewWhatsAppJoinRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM whatsapp_joins WHERE status = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "join_type", "status", "created_at"}).
			AddRow("j1", "Karim", "01700000000", "free", "pending", now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM whatsapp_joins WHERE status = $1")).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	joins, total, err := repo.List(context.Background(), models.ReviewFilter{Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, joins, 1)
	assert.Equal(t, models.JoinFree, joins[0].JoinType)
	assert.Equal(t, 1, total)
}

func TestProfileRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(user_id) LIKE $1) ORDER BY created_at DESC LIMIT 20 OFFSET 20")).
		WithArgs("%qur-00%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM profiles")).
		WithArgs("%qur-00%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	_, total, err := repo.List(context.Background(), models.ProfileFilter{Search: " QUR-00 ", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
}

func TestDashboardRepositoryAdminOverview(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"learners", "surahs", "questions", "answers", "ungraded_answers", "total_marks", "pending_donations", "pending_joins"}).
		AddRow(10, 19, 57, 40, 3, 74, 2, 1))

	overview, err := repo.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 19, overview.Surahs)
	assert.Equal(t, 74, overview.TotalMarks)
}
