package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DivyanshMauryaaa/testgem/pkg/testgem"
)

type fakeAPI struct {
	dashboardFn func(context.Context) (testgem.Dashboard, error)
	createFn    func(context.Context, testgem.Kind, string, string) (testgem.Record, error)
	renameFn    func(context.Context, testgem.Kind, string, string) (testgem.Record, error)
	deleteFn    func(context.Context, testgem.Kind, string) error
	proposeFn   func(context.Context, testgem.Kind, string, string) (testgem.Proposal, error)
	acceptFn    func(context.Context, string) (testgem.Record, error)
	rejectFn    func(context.Context, string) error

	calls []string
}

func (f *fakeAPI) Dashboard(ctx context.Context) (testgem.Dashboard, error) {
	f.calls = append(f.calls, "dashboard")
	if f.dashboardFn != nil {
		return f.dashboardFn(ctx)
	}
	return testgem.Dashboard{}, nil
}
func (f *fakeAPI) Create(ctx context.Context, kind testgem.Kind, title, content string) (testgem.Record, error) {
	f.calls = append(f.calls, "create")
	if f.createFn != nil {
		return f.createFn(ctx, kind, title, content)
	}
	return testgem.Record{ID: "new", Kind: kind, Title: title, Content: content}, nil
}
func (f *fakeAPI) Rename(ctx context.Context, kind testgem.Kind, id, title string) (testgem.Record, error) {
	f.calls = append(f.calls, "rename:"+id)
	if f.renameFn != nil {
		return f.renameFn(ctx, kind, id, title)
	}
	return testgem.Record{ID: id, Kind: kind, Title: title}, nil
}
func (f *fakeAPI) Delete(ctx context.Context, kind testgem.Kind, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, kind, id)
	}
	return nil
}
func (f *fakeAPI) ProposeEdit(ctx context.Context, kind testgem.Kind, id, instruction string) (testgem.Proposal, error) {
	f.calls = append(f.calls, "propose:"+id)
	if f.proposeFn != nil {
		return f.proposeFn(ctx, kind, id, instruction)
	}
	return testgem.Proposal{ID: "prop_1", Kind: kind, RecordID: id, Content: "rewritten"}, nil
}
func (f *fakeAPI) AcceptProposal(ctx context.Context, proposalID string) (testgem.Record, error) {
	f.calls = append(f.calls, "accept:"+proposalID)
	if f.acceptFn != nil {
		return f.acceptFn(ctx, proposalID)
	}
	return testgem.Record{ID: "1", Content: "rewritten"}, nil
}
func (f *fakeAPI) RejectProposal(ctx context.Context, proposalID string) error {
	f.calls = append(f.calls, "reject:"+proposalID)
	if f.rejectFn != nil {
		return f.rejectFn(ctx, proposalID)
	}
	return nil
}

func loaded(t *testing.T, api *fakeAPI) *Dashboard {
	t.Helper()
	api.dashboardFn = func(context.Context) (testgem.Dashboard, error) {
		return testgem.Dashboard{
			Documents: []testgem.Record{{ID: "1", Kind: testgem.KindDocuments, Title: "Quiz", Content: "Q1 - ?"}, {ID: "2", Kind: testgem.KindDocuments, Title: "Exam", Content: "Q1 - !"}},
			Notes:     []testgem.Record{{ID: "1", Kind: testgem.KindNotes, Title: "Quiz", Content: "note"}},
		}, nil
	}
	d := New(api, zap.NewNop())
	require.NoError(t, d.Load(context.Background()))
	api.calls = nil
	return d
}

func TestLoadNormalizesEmptyKinds(t *testing.T) {
	d := loaded(t, &fakeAPI{})
	assert.NotNil(t, d.Workspaces)
	assert.Len(t, d.Documents, 2)
}

func TestDeleteRemovesOnlyThatID(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)

	require.NoError(t, d.Delete(context.Background(), testgem.KindDocuments, "1"))
	assert.Equal(t, []string{"delete:1"}, api.calls)
	require.Len(t, d.Documents, 1)
	assert.Equal(t, "2", d.Documents[0].ID)
	assert.Len(t, d.Notes, 1, "same id in another kind must survive")
}

func TestDeleteFailureKeepsState(t *testing.T) {
	api := &fakeAPI{deleteFn: func(context.Context, testgem.Kind, string) error { return errors.New("offline") }}
	d := loaded(t, api)

	require.Error(t, d.Delete(context.Background(), testgem.KindDocuments, "1"))
	assert.Len(t, d.Documents, 2)
}

func TestRenameBlankTitleIsNoop(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)

	require.NoError(t, d.Rename(context.Background(), testgem.KindDocuments, "1", "   "))
	assert.Empty(t, api.calls)
	assert.Equal(t, "Quiz", d.Documents[0].Title)
}

func TestRenameUpdatesTitle(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)

	require.NoError(t, d.Rename(context.Background(), testgem.KindDocuments, "1", "Final Quiz"))
	assert.Equal(t, "Final Quiz", d.Documents[0].Title)
	assert.Equal(t, "Exam", d.Documents[1].Title)
}

func TestSaveGeneratedRequiresTitle(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)

	_, err := d.SaveGenerated(context.Background(), testgem.KindNotes, "", "generated")
	require.ErrorIs(t, err, ErrTitleRequired)
	assert.Empty(t, api.calls)
	assert.Len(t, d.Notes, 1)
}

func TestSaveGeneratedAppends(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)

	created, err := d.SaveGenerated(context.Background(), testgem.KindNotes, "Cells", "generated")
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
	require.Len(t, d.Notes, 2)
	assert.Equal(t, "Cells", d.Notes[1].Title)
}

func TestKeepReplacesTargetContentOnly(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)

	_, err := d.OpenAIEdit(context.Background(), testgem.KindDocuments, "1", "harder")
	require.NoError(t, err)
	require.NotNil(t, d.Proposal)

	_, err = d.Keep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rewritten", d.Documents[0].Content)
	assert.Equal(t, "Q1 - !", d.Documents[1].Content)
	assert.Equal(t, "note", d.Notes[0].Content)
	assert.Nil(t, d.Proposal)
}

func TestKeepFailureKeepsProposalAndContent(t *testing.T) {
	api := &fakeAPI{acceptFn: func(context.Context, string) (testgem.Record, error) { return testgem.Record{}, errors.New("503") }}
	d := loaded(t, api)

	_, err := d.OpenAIEdit(context.Background(), testgem.KindDocuments, "1", "harder")
	require.NoError(t, err)

	_, err = d.Keep(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Q1 - ?", d.Documents[0].Content)
	assert.NotNil(t, d.Proposal)
}

func TestDenyClearsProposalWithoutTouchingContent(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)

	_, err := d.OpenAIEdit(context.Background(), testgem.KindDocuments, "1", "harder")
	require.NoError(t, err)
	require.NoError(t, d.Deny(context.Background()))

	assert.Nil(t, d.Proposal)
	assert.Equal(t, "Q1 - ?", d.Documents[0].Content)
	assert.Equal(t, []string{"propose:1", "reject:prop_1"}, api.calls)
}

func TestKeepWithoutProposal(t *testing.T) {
	d := loaded(t, &fakeAPI{})
	_, err := d.Keep(context.Background())
	require.ErrorIs(t, err, ErrNoProposal)
	require.ErrorIs(t, d.Deny(context.Background()), ErrNoProposal)
}

func TestOpenAIEditFailureLeavesNoProposal(t *testing.T) {
	api := &fakeAPI{proposeFn: func(context.Context, testgem.Kind, string, string) (testgem.Proposal, error) {
		return testgem.Proposal{}, errors.New("AI service unavailable")
	}}
	d := loaded(t, api)

	_, err := d.OpenAIEdit(context.Background(), testgem.KindDocuments, "1", "harder")
	require.Error(t, err)
	assert.Nil(t, d.Proposal)
}

func TestFailedEditClearsEarlierProposal(t *testing.T) {
	api := &fakeAPI{}
	api.proposeFn = func(_ context.Context, kind testgem.Kind, id, _ string) (testgem.Proposal, error) {
		if id == "2" {
			return testgem.Proposal{}, errors.New("AI service unavailable")
		}
		return testgem.Proposal{ID: "prop_1", Kind: kind, RecordID: id, Content: "rewritten"}, nil
	}
	d := loaded(t, api)

	_, err := d.OpenAIEdit(context.Background(), testgem.KindDocuments, "1", "harder")
	require.NoError(t, err)
	_, err = d.OpenAIEdit(context.Background(), testgem.KindDocuments, "2", "harder")
	require.Error(t, err)
	assert.Nil(t, d.Proposal)

	_, err = d.Keep(context.Background())
	require.ErrorIs(t, err, ErrNoProposal)
	assert.NotContains(t, api.calls, "accept:prop_1")
	assert.Equal(t, "Q1 - ?", d.Documents[0].Content)
}

func TestRenameFailureKeepsTitle(t *testing.T) {
	api := &fakeAPI{renameFn: func(context.Context, testgem.Kind, string, string) (testgem.Record, error) {
		return testgem.Record{}, errors.New("offline")
	}}
	d := loaded(t, api)

	require.Error(t, d.Rename(context.Background(), testgem.KindDocuments, "1", "Final Quiz"))
	assert.Equal(t, []string{"rename:1"}, api.calls)
	assert.Equal(t, "Quiz", d.Documents[0].Title)
}

func TestSaveGeneratedFailureKeepsList(t *testing.T) {
	api := &fakeAPI{createFn: func(context.Context, testgem.Kind, string, string) (testgem.Record, error) {
		return testgem.Record{}, errors.New("offline")
	}}
	d := loaded(t, api)

	_, err := d.SaveGenerated(context.Background(), testgem.KindNotes, "Cells", "generated")
	require.Error(t, err)
	assert.Equal(t, []string{"create"}, api.calls)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "Quiz", d.Notes[0].Title)
}
