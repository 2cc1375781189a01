package businessflow

import (
	"context"
	"testing"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type campaignFlowFixture struct {
	flow       CampaignFlow
	customers  *fakeCustomerRepo
	campaigns  *fakeCampaignRepo
	contacts   *fakeContactRepo
	rendered   *fakeRenderedEmailRepo
	recipients *fakeRecipientRepo
	profiles   *fakeCompanyProfileRepo
	outbox     *fakeOutboxRepo
	audit      *fakeAuditRepo
	owner      *models.Customer
}

func newCampaignFlowFixture(t *testing.T) *campaignFlowFixture {
	t.Helper()

	customers := newFakeCustomerRepo()
	campaigns := newFakeCampaignRepo()
	contacts := newFakeContactRepo()
	rendered := newFakeRenderedEmailRepo()
	recipients := newFakeRecipientRepo(contacts, rendered)
	profiles := newFakeCompanyProfileRepo()
	outbox := newFakeOutboxRepo()
	audit := newFakeAuditRepo()

	owner := customers.addCustomer(&models.Customer{
		FirstName: "Dana",
		LastName:  "Miller",
		Email:     "dana@example.com",
	})

	flow := NewCampaignFlow(campaigns, customers, recipients, profiles, outbox, audit, nil, nil, nil)

	return &campaignFlowFixture{
		flow:       flow,
		customers:  customers,
		campaigns:  campaigns,
		contacts:   contacts,
		rendered:   rendered,
		recipients: recipients,
		profiles:   profiles,
		outbox:     outbox,
		audit:      audit,
		owner:      owner,
	}
}

func (f *campaignFlowFixture) createDraft(t *testing.T, name string) dto.CampaignDTO {
	t.Helper()

	resp, err := f.flow.CreateDraft(context.Background(), &dto.CreateDraftRequest{
		CustomerID: f.owner.ID,
		Name:       name,
	}, nil)
	require.NoError(t, err)
	return resp.Campaign
}

func TestCreateDraftDefaults(t *testing.T) {
	f := newCampaignFlowFixture(t)

	campaign := f.createDraft(t, "Spring Launch")

	assert.Equal(t, "DRAFT", campaign.Status)
	assert.Equal(t, 0, campaign.CurrentStep)
	assert.NotEmpty(t, campaign.UUID)
	require.Len(t, campaign.AnalysisSteps, 4)
	for _, step := range campaign.AnalysisSteps {
		assert.Equal(t, utils.AnalysisStatusWaiting, step.Status)
	}
	assert.Equal(t, models.AuditActionCampaignCreated, f.audit.lastAction())
}

func TestUpdateDraftMergesStepState(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	resp, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
		StepState: map[string]any{
			"customerFile": map[string]any{
				"fileId":   "f1",
				"fileName": "list.csv",
			},
		},
	}, nil)
	require.NoError(t, err)

	customerFile, ok := resp.Campaign.StepState["customerFile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "f1", customerFile["fileId"])
	assert.Equal(t, "list.csv", customerFile["fileName"])
	assert.Equal(t, 0, resp.Campaign.CurrentStep)
	assert.Equal(t, "DRAFT", resp.Campaign.Status)

	// A second partial write merges key by key instead of replacing the step
	resp, err = f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
		StepState: map[string]any{
			"mailService": map[string]any{"provider": "mailchimp", "connected": true},
		},
	}, nil)
	require.NoError(t, err)

	customerFile, ok = resp.Campaign.StepState["customerFile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "f1", customerFile["fileId"])
	mailService, ok := resp.Campaign.StepState["mailService"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mailchimp", mailService["provider"])
}

func TestUpdateDraftRejectsUnknownStepKey(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	_, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
		StepState: map[string]any{
			"notAStep": map[string]any{"x": 1},
		},
	}, nil)
	require.Error(t, err)
	assert.True(t, IsUnknownStepKey(err))

	// The failed write must not leave anything behind
	stored, err := f.campaigns.ByUUID(context.Background(), campaign.UUID)
	require.NoError(t, err)
	state, err := stored.StepState.ToMap()
	require.NoError(t, err)
	assert.NotContains(t, state, "notAStep")
}

func TestUpdateDraftSanitizesTemplateHTML(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	resp, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
		StepState: map[string]any{
			"commonTemplate": map[string]any{
				"subject": "  Hello <b>there</b>  ",
				"html":    `<p>Hi</p><script>alert("x")</script>`,
			},
		},
	}, nil)
	require.NoError(t, err)

	template, ok := resp.Campaign.StepState["commonTemplate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hello there", template["subject"])
	assert.Equal(t, "<p>Hi</p>", template["html"])
}

func TestUpdateDraftRejectsStatusChange(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	active := "ACTIVE"
	_, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
		Status:     &active,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsInvalidStatusTransition(err))
}

func TestUpdateDraftDeniedForOtherCustomer(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	other := f.customers.addCustomer(&models.Customer{
		FirstName: "Eve",
		LastName:  "Jones",
		Email:     "eve@example.com",
	})

	name := "Hijacked"
	_, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: other.ID,
		Name:       &name,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignAccessDenied(err))
}

func TestUpdateAnalysisSteps(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	resp, err := f.flow.UpdateAnalysisSteps(context.Background(), &dto.UpdateAnalysisStepsRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
		Steps: []dto.AnalysisStepDTO{
			{Key: utils.AnalysisStepScrape, Status: utils.AnalysisStatusDone},
			{Key: utils.AnalysisStepProfile, Status: utils.AnalysisStatusRunning},
		},
	}, nil)
	require.NoError(t, err)

	statuses := map[string]string{}
	for _, step := range resp.AnalysisSteps {
		statuses[step.Key] = step.Status
	}
	assert.Equal(t, utils.AnalysisStatusDone, statuses[utils.AnalysisStepScrape])
	assert.Equal(t, utils.AnalysisStatusRunning, statuses[utils.AnalysisStepProfile])
	assert.Equal(t, utils.AnalysisStatusWaiting, statuses[utils.AnalysisStepPersonas])
}

func TestUpdateAnalysisStepsRejectsUnknownKey(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	_, err := f.flow.UpdateAnalysisSteps(context.Background(), &dto.UpdateAnalysisStepsRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
		Steps: []dto.AnalysisStepDTO{
			{Key: "translate", Status: utils.AnalysisStatusDone},
		},
	}, nil)
	require.Error(t, err)
	assert.True(t, IsUnknownAnalysisStep(err))
}

func TestLaunchRequiresWizardProgress(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	_, err := f.flow.LaunchCampaign(context.Background(), &dto.LaunchCampaignRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignStepNotReady(err))

	stored, err := f.campaigns.ByUUID(context.Background(), campaign.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, stored.Status)
	assert.Nil(t, stored.LaunchedAt)
	assert.Empty(t, f.outbox.jobs)
}

func TestLaunchActiveCampaignFails(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	step := 2
	_, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:        campaign.UUID,
		CustomerID:  f.owner.ID,
		CurrentStep: &step,
	}, nil)
	require.NoError(t, err)

	_, err = f.flow.LaunchCampaign(context.Background(), &dto.LaunchCampaignRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.NoError(t, err)
	require.Len(t, f.outbox.jobs, 1)

	_, err = f.flow.LaunchCampaign(context.Background(), &dto.LaunchCampaignRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignAlreadyActive(err))
	assert.Len(t, f.outbox.jobs, 1)
}

func TestLaunchEnqueuesStagedRecipients(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	stored, err := f.campaigns.ByUUID(context.Background(), campaign.UUID)
	require.NoError(t, err)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		contact := &models.Contact{CustomerID: f.owner.ID, Email: email}
		require.NoError(t, f.contacts.Save(context.Background(), contact))
		require.NoError(t, f.recipients.Save(context.Background(), &models.CampaignRecipient{
			CampaignID: stored.ID,
			ContactID:  contact.ID,
			Status:     models.RecipientStatusStaged,
		}))
	}

	step := 3
	_, err = f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:        campaign.UUID,
		CustomerID:  f.owner.ID,
		CurrentStep: &step,
	}, nil)
	require.NoError(t, err)

	resp, err := f.flow.LaunchCampaign(context.Background(), &dto.LaunchCampaignRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "ACTIVE", resp.Campaign.Status)
	assert.NotNil(t, resp.Campaign.LaunchedAt)
	assert.Equal(t, 4, resp.Campaign.CurrentStep)
	assert.Equal(t, true, resp.Campaign.StepState["launched"])

	require.Len(t, f.outbox.jobs, 1)
	for _, job := range f.outbox.jobs {
		assert.Equal(t, stored.ID, job.CampaignID)
		assert.Equal(t, models.OutboxStatusPending, job.Status)
		assert.Len(t, job.RecipientIDs, 2)
		assert.NotEmpty(t, job.CorrelationID)
	}
	assert.Equal(t, models.AuditActionCampaignLaunched, f.audit.lastAction())
}

func TestDeleteDraftOnlyWhileDraft(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	step := 1
	_, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:        campaign.UUID,
		CustomerID:  f.owner.ID,
		CurrentStep: &step,
	}, nil)
	require.NoError(t, err)

	_, err = f.flow.LaunchCampaign(context.Background(), &dto.LaunchCampaignRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.NoError(t, err)

	_, err = f.flow.DeleteDraft(context.Background(), &dto.DeleteDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignNotDeletable(err))
}

func TestDeleteDraftRemovesCampaign(t *testing.T) {
	f := newCampaignFlowFixture(t)
	campaign := f.createDraft(t, "Spring Launch")

	_, err := f.flow.DeleteDraft(context.Background(), &dto.DeleteDraftRequest{
		UUID:       campaign.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.NoError(t, err)

	stored, err := f.campaigns.ByUUID(context.Background(), campaign.UUID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestListCampaignsFiltersAndPaginates(t *testing.T) {
	f := newCampaignFlowFixture(t)
	for _, name := range []string{"Spring Launch", "Summer Promo", "Winter Sale"} {
		f.createDraft(t, name)
	}

	resp, err := f.flow.ListCampaigns(context.Background(), &dto.ListCampaignsRequest{
		CustomerID: f.owner.ID,
		Page:       1,
		Limit:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.Len(t, resp.Items, 2)

	name := "summer"
	resp, err = f.flow.ListCampaigns(context.Background(), &dto.ListCampaignsRequest{
		CustomerID: f.owner.ID,
		Filter:     &dto.ListCampaignsFilter{Name: &name},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Summer Promo", resp.Items[0].Name)
}

func TestGetCampaignsSummaryCountsByStatus(t *testing.T) {
	f := newCampaignFlowFixture(t)
	f.createDraft(t, "One")
	second := f.createDraft(t, "Two")

	step := 1
	_, err := f.flow.UpdateDraft(context.Background(), &dto.UpdateDraftRequest{
		UUID:        second.UUID,
		CustomerID:  f.owner.ID,
		CurrentStep: &step,
	}, nil)
	require.NoError(t, err)
	_, err = f.flow.LaunchCampaign(context.Background(), &dto.LaunchCampaignRequest{
		UUID:       second.UUID,
		CustomerID: f.owner.ID,
	}, nil)
	require.NoError(t, err)

	summary, err := f.flow.GetCampaignsSummary(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.ByStatus["DRAFT"])
	assert.Equal(t, int64(1), summary.ByStatus["ACTIVE"])
	assert.Equal(t, int64(0), summary.ByStatus["COMPLETED"])
}
