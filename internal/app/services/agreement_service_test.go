package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/filestorage"
	"github.com/yigit/lingoschool/internal/pkg/metrics"
)

func signatureDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 30, 10))
	for x := 0; x < 30; x++ {
		img.Set(x, 5, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newAgreementFixture(t *testing.T) (*AgreementService, *fakeAgreements, *fakeStudents, *filestorage.LocalStorage) {
	t.Helper()
	users := newFakeUsers()
	students := newFakeStudents(users)
	agreements := newFakeAgreements()
	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	authz := appauth.NewAuthorizationService(students, users, newFakeMemos())
	svc := NewAgreementService(agreements, students, storage, authz, &recorder{}, metrics.New(),
		AgreementOptions{SchoolName: "Lingo School", TermsVersion: "2025-01"}, zerolog.Nop())
	return svc, agreements, students, storage
}

func TestSignAgreementArchivesPDF(t *testing.T) {
	svc, agreements, students, storage := newAgreementFixture(t)
	ctx := context.Background()
	st := students.addStudent("2503140109", "mina@example.com", nil)
	staff := appauth.Actor{UserID: 5, Role: models.RoleStaff}

	a, err := svc.Sign(ctx, staff, &dto.SignAgreementRequest{
		StudentID: st.ID, SignerName: " Hana Kim ", SignatureData: signatureDataURL(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hana Kim", a.SignerName)
	assert.Equal(t, "2025-01", a.TermsVersion)
	require.NotNil(t, a.PDFPath)

	stored := agreements.items[a.ID]
	require.NotNil(t, stored.PDFPath)
	body, err := storage.ReadFile(*stored.PDFPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	pdfBody, name, err := svc.PDF(ctx, staff, a.ID)
	require.NoError(t, err)
	assert.Equal(t, body, pdfBody)
	assert.Equal(t, "agreement-1.pdf", name)
}

func TestAgreementPDFRendersWhenArchiveMissing(t *testing.T) {
	svc, agreements, students, storage := newAgreementFixture(t)
	ctx := context.Background()
	st := students.addStudent("2503140109", "mina@example.com", nil)
	admin := appauth.Actor{UserID: 1, Role: models.RoleAdmin}

	a, err := svc.Sign(ctx, admin, &dto.SignAgreementRequest{StudentID: st.ID, SignerName: "Hana", SignatureData: signatureDataURL(t)})
	require.NoError(t, err)
	require.NoError(t, storage.DeleteFile(*agreements.items[a.ID].PDFPath))

	body, _, err := svc.PDF(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestSignAgreementRejectsBadSignature(t *testing.T) {
	svc, _, students, _ := newAgreementFixture(t)
	st := students.addStudent("2503140109", "mina@example.com", nil)

	_, err := svc.Sign(context.Background(), appauth.Actor{UserID: 1, Role: models.RoleAdmin}, &dto.SignAgreementRequest{
		StudentID: st.ID, SignerName: "Hana", SignatureData: "data:image/jpeg;base64,AAAA",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignatureImage)
}

func TestAgreementAccessForParents(t *testing.T) {
	svc, _, students, _ := newAgreementFixture(t)
	ctx := context.Background()
	parentID := int64(77)
	mine := students.addStudent("2503140109", "kid@example.com", &parentID)
	other := students.addStudent("2503140209", "other@example.com", nil)
	parent := appauth.Actor{UserID: parentID, Role: models.RoleParent}

	_, err := svc.Sign(ctx, parent, &dto.SignAgreementRequest{StudentID: mine.ID, SignerName: "Parent", SignatureData: signatureDataURL(t)})
	require.NoError(t, err)

	_, err = svc.Sign(ctx, parent, &dto.SignAgreementRequest{StudentID: other.ID, SignerName: "Parent", SignatureData: signatureDataURL(t)})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	list, err := svc.ListByStudent(ctx, parent, mine.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
