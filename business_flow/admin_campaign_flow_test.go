package businessflow

import (
	"bytes"
	"context"
	"testing"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/config"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type adminFlowFixture struct {
	flow       AdminCampaignFlow
	campaigns  *fakeCampaignRepo
	contacts   *fakeContactRepo
	rendered   *fakeRenderedEmailRepo
	recipients *fakeRecipientRepo
	audit      *fakeAuditRepo
}

func newAdminFlowFixture(t *testing.T) *adminFlowFixture {
	t.Helper()

	campaigns := newFakeCampaignRepo()
	contacts := newFakeContactRepo()
	rendered := newFakeRenderedEmailRepo()
	recipients := newFakeRecipientRepo(contacts, rendered)
	audit := newFakeAuditRepo()

	flow := NewAdminCampaignFlow(campaigns, recipients, audit, &config.MailConfig{}, nil)

	return &adminFlowFixture{
		flow:       flow,
		campaigns:  campaigns,
		contacts:   contacts,
		rendered:   rendered,
		recipients: recipients,
		audit:      audit,
	}
}

func TestAdminPauseAndResume(t *testing.T) {
	f := newAdminFlowFixture(t)
	campaign := f.campaigns.addCampaign(&models.Campaign{
		CustomerID: 1,
		Name:       "Running",
		Status:     models.CampaignStatusActive,
	})

	resp, err := f.flow.PauseCampaign(context.Background(), &dto.AdminCampaignStatusRequest{UUID: campaign.UUID.String()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "PAUSED", resp.Status)
	assert.Equal(t, models.AuditActionCampaignPaused, f.audit.lastAction())

	resp, err = f.flow.ResumeCampaign(context.Background(), &dto.AdminCampaignStatusRequest{UUID: campaign.UUID.String()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resp.Status)

	resp, err = f.flow.CompleteCampaign(context.Background(), &dto.AdminCampaignStatusRequest{UUID: campaign.UUID.String()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", resp.Status)
}

func TestAdminTransitionRejectsInvalidMoves(t *testing.T) {
	f := newAdminFlowFixture(t)
	campaign := f.campaigns.addCampaign(&models.Campaign{
		CustomerID: 1,
		Name:       "Still a draft",
		Status:     models.CampaignStatusDraft,
	})

	_, err := f.flow.PauseCampaign(context.Background(), &dto.AdminCampaignStatusRequest{UUID: campaign.UUID.String()}, nil)
	require.Error(t, err)
	assert.True(t, IsInvalidStatusTransition(err))

	// A completed campaign is terminal
	done := f.campaigns.addCampaign(&models.Campaign{
		CustomerID: 1,
		Name:       "Done",
		Status:     models.CampaignStatusCompleted,
	})
	_, err = f.flow.ResumeCampaign(context.Background(), &dto.AdminCampaignStatusRequest{UUID: done.UUID.String()}, nil)
	require.Error(t, err)
	assert.True(t, IsInvalidStatusTransition(err))
}

func TestAdminListAllCampaignsFiltersByStatus(t *testing.T) {
	f := newAdminFlowFixture(t)
	f.campaigns.addCampaign(&models.Campaign{CustomerID: 1, Name: "One", Status: models.CampaignStatusDraft})
	f.campaigns.addCampaign(&models.Campaign{CustomerID: 2, Name: "Two", Status: models.CampaignStatusActive})

	active := "ACTIVE"
	resp, err := f.flow.ListAllCampaigns(context.Background(), &dto.AdminListCampaignsRequest{Status: &active})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Two", resp.Items[0].Name)
}

func TestAdminExportRecipientsWorkbook(t *testing.T) {
	f := newAdminFlowFixture(t)
	campaign := f.campaigns.addCampaign(&models.Campaign{
		CustomerID: 1,
		Name:       "Export me",
		Status:     models.CampaignStatusActive,
	})

	contact := &models.Contact{
		CustomerID: 1,
		Email:      "amy@example.com",
		FirstName:  utils.ToPtr("Amy"),
		LastName:   utils.ToPtr("Pond"),
	}
	require.NoError(t, f.contacts.Save(context.Background(), contact))

	recipient := &models.CampaignRecipient{
		CampaignID:  campaign.ID,
		ContactID:   contact.ID,
		PersonaCode: utils.ToPtr("ops"),
		Confidence:  utils.ToPtr(87),
		Status:      models.RecipientStatusStaged,
	}
	require.NoError(t, f.recipients.Save(context.Background(), recipient))
	require.NoError(t, f.rendered.Save(context.Background(), &models.CampaignRenderedEmail{
		CampaignID:          campaign.ID,
		CampaignRecipientID: recipient.ID,
		Subject:             "Welcome aboard",
		HTML:                "<p>Hello</p>",
	}))

	resp, err := f.flow.ExportRecipients(context.Background(), &dto.AdminExportRecipientsRequest{UUID: campaign.UUID.String()})
	require.NoError(t, err)
	assert.Contains(t, resp.Filename, campaign.UUID.String())
	require.NotEmpty(t, resp.Content)

	// The workbook must round-trip with the recipient data in place
	book, err := excelize.OpenReader(bytes.NewReader(resp.Content))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Recipients")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Email", rows[0][0])
	assert.Equal(t, "amy@example.com", rows[1][0])
	assert.Equal(t, "Amy Pond", rows[1][1])
	assert.Equal(t, "Welcome aboard", rows[1][5])
}

func TestAdminExportUnknownCampaign(t *testing.T) {
	f := newAdminFlowFixture(t)

	_, err := f.flow.ExportRecipients(context.Background(), &dto.AdminExportRecipientsRequest{
		UUID: "4c2f0a35-6fb0-4a58-b26e-1a1afca1563b",
	})
	require.Error(t, err)
	assert.True(t, IsCampaignNotFound(err))
}
