package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joescharf/issuetracker/internal/models"
)

const issuesCollection = "issues"

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// issueDoc is the stored document shape.
type issueDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Project    string             `bson:"project"`
	Title      string             `bson:"issue_title"`
	Text       string             `bson:"issue_text"`
	CreatedBy  string             `bson:"created_by"`
	AssignedTo string             `bson:"assigned_to"`
	StatusText string             `bson:"status_text"`
	Open       bool               `bson:"open"`
	CreatedOn  time.Time          `bson:"created_on"`
	UpdatedOn  time.Time          `bson:"updated_on"`
}

func (d *issueDoc) issue() *models.Issue {
	return &models.Issue{
		ID:         d.ID.Hex(),
		Project:    d.Project,
		Title:      d.Title,
		Text:       d.Text,
		CreatedBy:  d.CreatedBy,
		AssignedTo: d.AssignedTo,
		StatusText: d.StatusText,
		Open:       d.Open,
		CreatedOn:  d.CreatedOn.UTC(),
		UpdatedOn:  d.UpdatedOn.UTC(),
	}
}

// NewMongoStore connects to uri and uses the issues collection of database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(issuesCollection),
	}, nil
}

// Migrate ensures the listing index exists.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "project", Value: 1}, {Key: "created_on", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if err := assignID(issue); err != nil {
		return err
	}
	oid, _ := parseID(issue.ID)
	ts := now()
	issue.CreatedOn = ts
	issue.UpdatedOn = ts

	doc := issueDoc{
		ID:         oid,
		Project:    issue.Project,
		Title:      issue.Title,
		Text:       issue.Text,
		CreatedBy:  issue.CreatedBy,
		AssignedTo: issue.AssignedTo,
		StatusText: issue.StatusText,
		Open:       issue.Open,
		CreatedOn:  ts,
		UpdatedOn:  ts,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

func (s *MongoStore) GetIssue(ctx context.Context, project, id string) (*models.Issue, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}

	var doc issueDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": oid, "project": project}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return doc.issue(), nil
}

// mongoFilter translates an IssueListFilter into a query document.
func mongoFilter(f IssueListFilter) bson.M {
	q := bson.M{"project": f.Project}
	if f.ID != nil {
		oid, _ := parseID(*f.ID)
		q["_id"] = oid
	}
	addString := func(key string, v *string) {
		if v != nil {
			q[key] = *v
		}
	}
	addString(models.FieldTitle, f.Title)
	addString(models.FieldText, f.Text)
	addString(models.FieldCreatedBy, f.CreatedBy)
	addString(models.FieldAssignedTo, f.AssignedTo)
	addString(models.FieldStatusText, f.StatusText)
	if f.Open != nil {
		q[models.FieldOpen] = *f.Open
	}
	return q
}

func (s *MongoStore) ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, error) {
	issues := []*models.Issue{}
	if filter.NoMatch {
		return issues, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_on", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	for cur.Next(ctx) {
		var doc issueDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode issue: %w", err)
		}
		issues = append(issues, doc.issue())
	}
	return issues, cur.Err()
}

// UpdateIssue issues a single $set of the patched fields.
func (s *MongoStore) UpdateIssue(ctx context.Context, project, id string, patch models.IssuePatch) error {
	oid, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}

	set := bson.M{models.FieldUpdatedOn: now()}
	setString := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	setString(models.FieldTitle, patch.Title)
	setString(models.FieldText, patch.Text)
	setString(models.FieldCreatedBy, patch.CreatedBy)
	setString(models.FieldAssignedTo, patch.AssignedTo)
	setString(models.FieldStatusText, patch.StatusText)
	if patch.Open != nil {
		set[models.FieldOpen] = *patch.Open
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid, "project": project}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteIssue(ctx context.Context, project, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "project": project})
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
