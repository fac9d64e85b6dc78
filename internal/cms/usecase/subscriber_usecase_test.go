package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"blog-cms/internal/cms/adapter/tabular"
	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/eventbus"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SubscriberUsecaseTestSuite struct {
	suite.Suite
	f  *fixture
	uc *SubscriberUsecase
}

func (s *SubscriberUsecaseTestSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.uc = NewSubscriberUsecase(s.f.deps)
}

func TestSubscriberUsecaseTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriberUsecaseTestSuite))
}

func (s *SubscriberUsecaseTestSuite) seed(sub *model.EmailSubscriber) {
	s.Require().NoError(s.f.stores.Subscribers.Set(context.Background(), sub.ID, sub))
}

func (s *SubscriberUsecaseTestSuite) TestImportSubscribers_CSV() {
	s.seed(&model.EmailSubscriber{
		ID:                  "old@example.com",
		Email:               "old@example.com",
		FirstName:           "Olga",
		LastSubSource:       model.SubSourceBlog,
		SubscriptionSources: []string{model.SubSourceBlog},
		CreatedTimestamp:    testNow.Add(-24 * time.Hour),
	})

	csv := "Email,firstName,source,optInConfirmed\n" +
		"New@Example.com,Nina,webinar,yes\n" +
		"not-an-email,Bad,,\n" +
		"new@example.com,Dup,,\n" +
		"old@example.com,Other,,\n" +
		"third@example.com,,,\n"
	res, err := s.uc.ImportSubscribers(userCtx(), ImportRequest{FileName: "list.csv", Data: []byte(csv)})
	s.Require().NoError(err)

	s.Equal(3, res.Written)
	s.Equal(2, res.Created)
	s.Equal(1, res.Updated)
	s.Equal([]SkippedRow{
		{Row: 3, Value: "not-an-email", Reason: "invalid email"},
		{Row: 4, Value: "new@example.com", Reason: "duplicate email"},
	}, res.Skipped)

	created, err := s.f.stores.Subscribers.Get(context.Background(), "new@example.com")
	s.Require().NoError(err)
	s.Equal("Nina", created.FirstName)
	s.Equal("webinar", created.LastSubSource)
	s.True(created.OptInConfirmed)
	s.Require().NotNil(created.OptInTimestamp)
	s.True(created.OptInTimestamp.Equal(testNow))

	existing, err := s.f.stores.Subscribers.Get(context.Background(), "old@example.com")
	s.Require().NoError(err)
	s.Equal("Olga", existing.FirstName, "imports never overwrite a known first name")
	s.Equal([]string{model.SubSourceBlog, model.SubSourceImport}, existing.SubscriptionSources)
	s.Equal(model.SubSourceImport, existing.LastSubSource)

	msgs := s.f.topics.messages(repository.TopicSubscriberCreated)
	s.Len(msgs, 2, "only new subscribers are announced")
	var first model.EmailSubscriber
	s.Require().NoError(json.Unmarshal(msgs[0], &first))
	s.Equal("new@example.com", first.ID)
}

func (s *SubscriberUsecaseTestSuite) TestImportSubscribers_XLSX() {
	data, err := tabular.Encode(tabular.FormatXLSX, &tabular.Table{
		Header: []string{"email"},
		Rows:   [][]string{{"a@example.com"}, {"b@example.com"}},
	}, "subscribers")
	s.Require().NoError(err)

	res, err := s.uc.ImportSubscribers(userCtx(), ImportRequest{FileName: "list.xlsx", Data: data})
	s.Require().NoError(err)
	s.Equal(2, res.Created)
	n, err := s.f.stores.Subscribers.Count(context.Background(), model.NewQuery())
	s.Require().NoError(err)
	s.EqualValues(2, n)
}

func (s *SubscriberUsecaseTestSuite) TestImportSubscribers_SkippedRowsKeepSourceLines() {
	csv := "email\n" +
		"\n" +
		"a@example.com\n" +
		",\n" +
		"bad-address\n"
	res, err := s.uc.ImportSubscribers(userCtx(), ImportRequest{FileName: "list.csv", Data: []byte(csv)})
	s.Require().NoError(err)

	s.Equal(1, res.Created)
	s.Equal([]SkippedRow{{Row: 5, Value: "bad-address", Reason: "invalid email"}}, res.Skipped)
}

func (s *SubscriberUsecaseTestSuite) TestExportSubscribers_EscapesFormulas() {
	s.seed(&model.EmailSubscriber{ID: "a@example.com", Email: "a@example.com", FirstName: "=HYPERLINK(\"http://x\")", CreatedTimestamp: testNow})

	file, err := s.uc.ExportSubscribers(userCtx(), ExportRequest{})
	s.Require().NoError(err)

	s.Contains(string(file.Data), `'=HYPERLINK`)
	s.NotContains(string(file.Data), `,"=HYPERLINK`)
}

func (s *SubscriberUsecaseTestSuite) TestImportSubscribers_Invalid() {
	_, err := s.uc.ImportSubscribers(userCtx(), ImportRequest{FileName: "list.csv", Data: []byte("name\nx\n")})
	s.True(apperrors.IsValidation(err))

	_, err = s.uc.ImportSubscribers(userCtx(), ImportRequest{FileName: "list.pdf", Data: []byte("x")})
	s.True(apperrors.IsValidation(err))
}

func (s *SubscriberUsecaseTestSuite) TestExportSubscribers_Filter() {
	s.seed(&model.EmailSubscriber{ID: "a@example.com", Email: "a@example.com", OptInConfirmed: true, CreatedTimestamp: testNow.Add(-2 * time.Hour)})
	s.seed(&model.EmailSubscriber{ID: "b@example.com", Email: "b@example.com", CreatedTimestamp: testNow.Add(-time.Hour)})

	file, err := s.uc.ExportSubscribers(userCtx(), ExportRequest{Filter: "subscriber.optInConfirmed == true"})
	s.Require().NoError(err)
	s.Equal(1, file.Count)
	s.Equal("subscribers-20240501-120000.csv", file.FileName)
	s.Equal(tabular.FormatCSV.ContentType(), file.ContentType)

	table, err := tabular.Decode(tabular.FormatCSV, file.Data)
	s.Require().NoError(err)
	s.Require().Len(table.Rows, 1)
	s.Equal("a@example.com", tabular.Value(table.Rows[0], table.Column("email")))

	_, err = s.uc.ExportSubscribers(userCtx(), ExportRequest{Filter: "1 + 2"})
	s.True(apperrors.IsValidation(err))
}

func (s *SubscriberUsecaseTestSuite) TestSubscribe() {
	sub, err := s.uc.Subscribe(context.Background(), SubscribeRequest{Email: " Reader@Example.com ", FirstName: "Rea"})
	s.Require().NoError(err)
	s.Equal("reader@example.com", sub.ID)
	s.Equal(model.SubSourceBlog, sub.LastSubSource)
	s.Contains(s.f.bus.types(), eventbus.EventTypeSubscriberCreated)
	s.Len(s.f.topics.messages(repository.TopicSubscriberCreated), 1)

	_, err = s.uc.Subscribe(context.Background(), SubscribeRequest{Email: "reader@example.com", Source: "course"})
	s.Require().NoError(err)
	s.Len(s.f.topics.messages(repository.TopicSubscriberCreated), 1, "existing subscribers are not announced again")

	_, err = s.uc.Subscribe(context.Background(), SubscribeRequest{Email: "nope"})
	s.True(apperrors.IsValidation(err))
}

func (s *SubscriberUsecaseTestSuite) TestHandleSubscriberCreated() {
	s.seed(&model.EmailSubscriber{ID: "a@example.com", Email: "a@example.com"})
	s.f.mailer.On("UpsertContact", mock.Anything, mock.MatchedBy(func(sub *model.EmailSubscriber) bool {
		return sub.ID == "a@example.com"
	})).Return("job-1", nil).Once()

	payload, _ := json.Marshal(model.EmailSubscriber{ID: "a@example.com"})
	s.Require().NoError(s.uc.HandleSubscriberCreated(context.Background(), payload))

	sub, err := s.f.stores.Subscribers.Get(context.Background(), "a@example.com")
	s.Require().NoError(err)
	s.Equal("job-1", sub.SendgridContactID)
	s.f.mailer.AssertExpectations(s.T())
}

func (s *SubscriberUsecaseTestSuite) TestHandleSubscriberCreated_DropsBadMessages() {
	s.NoError(s.uc.HandleSubscriberCreated(context.Background(), []byte("{not json")))
	s.NoError(s.uc.HandleSubscriberCreated(context.Background(), []byte(`{"id":"gone@example.com"}`)))

	s.seed(&model.EmailSubscriber{ID: "u@example.com", Email: "u@example.com", Unsubscribed: true})
	s.NoError(s.uc.HandleSubscriberCreated(context.Background(), []byte(`{"id":"u@example.com"}`)))
	s.f.mailer.AssertNotCalled(s.T(), "UpsertContact", mock.Anything, mock.Anything)
}

func (s *SubscriberUsecaseTestSuite) TestHandleSubscriberCreated_ProviderErrorIsRetried() {
	s.seed(&model.EmailSubscriber{ID: "a@example.com", Email: "a@example.com"})
	s.f.mailer.On("UpsertContact", mock.Anything, mock.Anything).Return("", apperrors.NewUnavailableError("sendgrid down")).Once()

	err := s.uc.HandleSubscriberCreated(context.Background(), []byte(`{"id":"a@example.com"}`))
	s.Equal(apperrors.StatusUnavailable, apperrors.StatusOf(err))
}

func (s *SubscriberUsecaseTestSuite) TestDeleteSubscriber() {
	s.seed(&model.EmailSubscriber{ID: "a@example.com", Email: "a@example.com", SendgridContactID: "c-1"})
	s.f.mailer.On("DeleteContact", mock.Anything, "c-1").Return(nil).Once()

	s.Require().NoError(s.uc.DeleteSubscriber(context.Background(), "A@example.com"))
	_, err := s.uc.GetSubscriber(context.Background(), "a@example.com")
	s.True(apperrors.IsNotFound(err))
	s.f.mailer.AssertExpectations(s.T())

	s.NoError(s.uc.DeleteSubscriber(context.Background(), "a@example.com"), "deleting twice succeeds")
}

func (s *SubscriberUsecaseTestSuite) TestListSubscribers() {
	s.seed(&model.EmailSubscriber{ID: "a@example.com", OptInConfirmed: true, CreatedTimestamp: testNow.Add(-2 * time.Hour)})
	s.seed(&model.EmailSubscriber{ID: "b@example.com", CreatedTimestamp: testNow.Add(-time.Hour)})

	subs, err := s.uc.ListSubscribers(context.Background(), ListSubscribersRequest{})
	s.Require().NoError(err)
	s.Require().Len(subs, 2)
	s.Equal("b@example.com", subs[0].ID)

	subs, err = s.uc.ListSubscribers(context.Background(), ListSubscribersRequest{OptInConfirmed: boolPtr(true)})
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal("a@example.com", subs[0].ID)
}
