package businessflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importFlowFixture struct {
	flow       ImportFlow
	customers  *fakeCustomerRepo
	campaigns  *fakeCampaignRepo
	contacts   *fakeContactRepo
	rendered   *fakeRenderedEmailRepo
	recipients *fakeRecipientRepo
	files      *fakeFileRepo
	storage    *fakeStorage
	audit      *fakeAuditRepo
	owner      *models.Customer
	campaign   *models.Campaign
}

func newImportFlowFixture(t *testing.T) *importFlowFixture {
	t.Helper()

	customers := newFakeCustomerRepo()
	campaigns := newFakeCampaignRepo()
	contacts := newFakeContactRepo()
	rendered := newFakeRenderedEmailRepo()
	recipients := newFakeRecipientRepo(contacts, rendered)
	files := newFakeFileRepo()
	storage := newFakeStorage()
	audit := newFakeAuditRepo()

	owner := customers.addCustomer(&models.Customer{
		FirstName: "Dana",
		LastName:  "Miller",
		Email:     "dana@example.com",
	})
	campaign := campaigns.addCampaign(&models.Campaign{
		CustomerID:    owner.ID,
		Name:          "Spring Launch",
		Status:        models.CampaignStatusDraft,
		AnalysisSteps: models.DefaultAnalysisSteps(),
	})

	flow := NewImportFlow(campaigns, customers, contacts, recipients, rendered, files, storage, audit, nil)

	return &importFlowFixture{
		flow:       flow,
		customers:  customers,
		campaigns:  campaigns,
		contacts:   contacts,
		rendered:   rendered,
		recipients: recipients,
		files:      files,
		storage:    storage,
		audit:      audit,
		owner:      owner,
		campaign:   campaign,
	}
}

func importRow(email, displayName, personaCode string, confidence *float64) dto.RenderedEmailRow {
	return dto.RenderedEmailRow{
		Customer: dto.ImportCustomerBlock{
			CustomerEmail: email,
			DisplayName:   displayName,
		},
		Persona: dto.ImportPersonaBlock{
			PersonaCode:     personaCode,
			MatchConfidence: confidence,
		},
		Email: dto.ImportEmailBlock{
			Meta: dto.ImportEmailMeta{
				Subject: "Welcome aboard",
				To:      email,
			},
			HTMLBody: "<p>Hello</p>",
		},
	}
}

func TestImportReportsMissingEmailRows(t *testing.T) {
	f := newImportFlowFixture(t)

	rows := []dto.RenderedEmailRow{
		importRow("", "Nobody Home", "ops", nil),
		importRow("Amy@Example.com", "Amy Pond", "ops", utils.ToPtr(0.87)),
	}

	resp, err := f.flow.ImportRenderedEmails(context.Background(), &dto.ImportRenderedEmailsRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		Rows:       rows,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalRows)
	assert.Equal(t, 1, resp.UpsertedRecipients)
	assert.Equal(t, 1, resp.UpsertedEmails)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 0, resp.Errors[0].Index)
	assert.Contains(t, resp.Errors[0].Message, "Missing customer_email")
	assert.Equal(t, int64(1), resp.TotalRecipients)

	// Email normalized to lowercase, display name split into first and last
	contact, err := f.contacts.ByOwnerAndEmail(context.Background(), f.owner.ID, "amy@example.com")
	require.NoError(t, err)
	require.NotNil(t, contact)
	require.NotNil(t, contact.FirstName)
	assert.Equal(t, "Amy", *contact.FirstName)
	require.NotNil(t, contact.LastName)
	assert.Equal(t, "Pond", *contact.LastName)
}

func TestImportScalesAndClampsConfidence(t *testing.T) {
	f := newImportFlowFixture(t)

	rows := []dto.RenderedEmailRow{
		importRow("a@example.com", "A", "ops", utils.ToPtr(0.87)),
		importRow("b@example.com", "B", "ops", utils.ToPtr(1.7)),
		importRow("c@example.com", "C", "ops", utils.ToPtr(-0.2)),
	}

	resp, err := f.flow.ImportRenderedEmails(context.Background(), &dto.ImportRenderedEmailsRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		Rows:       rows,
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Errors)

	confidences := map[string]int{}
	for _, rec := range f.recipients.recipients {
		contact, _ := f.contacts.ByID(context.Background(), rec.ContactID)
		require.NotNil(t, rec.Confidence)
		confidences[contact.Email] = *rec.Confidence
	}
	assert.Equal(t, 87, confidences["a@example.com"])
	assert.Equal(t, 100, confidences["b@example.com"])
	assert.Equal(t, 0, confidences["c@example.com"])
}

func TestImportIsIdempotent(t *testing.T) {
	f := newImportFlowFixture(t)

	rows := []dto.RenderedEmailRow{
		importRow("a@example.com", "Amy Pond", "ops", utils.ToPtr(0.5)),
		importRow("b@example.com", "Ben King", "exec", utils.ToPtr(0.9)),
	}

	first, err := f.flow.ImportRenderedEmails(context.Background(), &dto.ImportRenderedEmailsRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		Rows:       rows,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.TotalRecipients)

	second, err := f.flow.ImportRenderedEmails(context.Background(), &dto.ImportRenderedEmailsRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		Rows:       rows,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), second.TotalRecipients)
	assert.Equal(t, int64(1), second.ByPersona["ops"])
	assert.Equal(t, int64(1), second.ByPersona["exec"])
	assert.Len(t, f.contacts.contacts, 2)
	assert.Len(t, f.recipients.recipients, 2)
	assert.Len(t, f.rendered.emails, 2)
}

func TestImportReStagesSentRecipients(t *testing.T) {
	f := newImportFlowFixture(t)

	rows := []dto.RenderedEmailRow{importRow("a@example.com", "Amy", "ops", nil)}

	_, err := f.flow.ImportRenderedEmails(context.Background(), &dto.ImportRenderedEmailsRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		Rows:       rows,
	}, nil)
	require.NoError(t, err)

	for _, rec := range f.recipients.recipients {
		rec.Status = models.RecipientStatusSent
	}

	_, err = f.flow.ImportRenderedEmails(context.Background(), &dto.ImportRenderedEmailsRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		Rows:       rows,
	}, nil)
	require.NoError(t, err)

	for _, rec := range f.recipients.recipients {
		assert.Equal(t, models.RecipientStatusStaged, rec.Status)
	}
}

func TestImportPersistsSummaryInStepState(t *testing.T) {
	f := newImportFlowFixture(t)

	rows := []dto.RenderedEmailRow{
		importRow("", "", "", nil),
		importRow("a@example.com", "Amy", "ops", nil),
		importRow("b@example.com", "Ben", "ops", nil),
	}

	_, err := f.flow.ImportRenderedEmails(context.Background(), &dto.ImportRenderedEmailsRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		Rows:       rows,
	}, nil)
	require.NoError(t, err)

	stored, err := f.campaigns.ByUUID(context.Background(), f.campaign.UUID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.StepState.Summary)
	assert.Equal(t, int64(2), stored.StepState.Summary.TotalRecipients)
	assert.Equal(t, int64(2), stored.StepState.Summary.ByPersona["ops"])
	require.NotNil(t, stored.StepState.Summary.ImportErrors)
	assert.Equal(t, 1, *stored.StepState.Summary.ImportErrors)
	assert.Equal(t, models.AuditActionRenderedEmailsImport, f.audit.lastAction())
}

func TestImportFromFileAcceptsBothShapes(t *testing.T) {
	f := newImportFlowFixture(t)

	rows := []dto.RenderedEmailRow{importRow("a@example.com", "Amy", "ops", nil)}

	// Object shape with a recipients array
	wrapped, err := json.Marshal(map[string]any{"recipients": rows})
	require.NoError(t, err)

	file := &models.StoredFile{
		CustomerID:       f.owner.ID,
		OriginalFilename: "render.json",
		Purpose:          models.FilePurposeRenderedEmails,
	}
	f.storage.putFile(file, wrapped)
	require.NoError(t, f.files.Save(context.Background(), file))

	resp, err := f.flow.ImportRenderedEmailsFromFile(context.Background(), &dto.ImportRenderedEmailsFileRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		FileID:     file.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalRows)

	stored, err := f.campaigns.ByUUID(context.Background(), f.campaign.UUID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.StepState.RenderedEmailsFile)
	assert.Equal(t, "render.json", stored.StepState.RenderedEmailsFile.FileName)

	// Top-level array shape
	plain, err := json.Marshal(rows)
	require.NoError(t, err)

	arrayFile := &models.StoredFile{
		CustomerID:       f.owner.ID,
		OriginalFilename: "render-array.json",
		Purpose:          models.FilePurposeRenderedEmails,
	}
	f.storage.putFile(arrayFile, plain)
	require.NoError(t, f.files.Save(context.Background(), arrayFile))

	resp, err = f.flow.ImportRenderedEmailsFromFile(context.Background(), &dto.ImportRenderedEmailsFileRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		FileID:     arrayFile.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalRows)
}

func TestImportFromMalformedFileFails(t *testing.T) {
	f := newImportFlowFixture(t)

	file := &models.StoredFile{
		CustomerID:       f.owner.ID,
		OriginalFilename: "broken.json",
		Purpose:          models.FilePurposeRenderedEmails,
	}
	f.storage.putFile(file, []byte(`{"unexpected": true}`))
	require.NoError(t, f.files.Save(context.Background(), file))

	_, err := f.flow.ImportRenderedEmailsFromFile(context.Background(), &dto.ImportRenderedEmailsFileRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		FileID:     file.ID,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsMalformedImportPayload(err))
}

func TestImportFromMissingFileFails(t *testing.T) {
	f := newImportFlowFixture(t)

	_, err := f.flow.ImportRenderedEmailsFromFile(context.Background(), &dto.ImportRenderedEmailsFileRequest{
		UUID:       f.campaign.UUID.String(),
		CustomerID: f.owner.ID,
		FileID:     999,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsFileNotFound(err))
}
