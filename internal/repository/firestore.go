package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// FirestoreStore keeps one document per reservation in a Firestore
// collection. Documents use the field names and string-typed amounts
// already written by the venue's web form, so both can share a
// collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore binds a store to collection.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

// Query is the ordered query backing List; the Firestore change feed
// listens on the same query.
func (s *FirestoreStore) Query() firestore.Query {
	return s.client.Collection(s.collection).OrderBy("date", firestore.Asc)
}

func (s *FirestoreStore) Create(ctx context.Context, r *model.Reservation) (string, error) {
	if r.Status == "" {
		r.Status = model.StatusPending
	}
	ref, _, err := s.client.Collection(s.collection).Add(ctx, toDocument(*r))
	if err != nil {
		return "", err
	}
	r.ID = ref.ID
	return ref.ID, nil
}

// Delete requires the document to exist so that a second delete of the
// same id fails with ErrNotFound.
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Collection(s.collection).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) List(ctx context.Context) ([]model.Reservation, error) {
	docs, err := s.Query().Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(d.Ref.ID, d.Data()))
	}
	return out, nil
}

func toDocument(r model.Reservation) map[string]interface{} {
	doc := map[string]interface{}{
		"clientName":       r.ClientName,
		"date":             r.Date,
		"reservationValue": r.ReservationValue.String(),
		"advancePayment":   "",
		"tableQuantity":    "",
		"guests":           "",
		"phone":            r.Phone,
		"notes":            r.Notes,
		"status":           string(r.Status),
		"createdAt":        r.CreatedAt,
	}
	if r.AdvancePayment.Valid {
		doc["advancePayment"] = r.AdvancePayment.Decimal.String()
	}
	if r.TableQuantity != nil {
		doc["tableQuantity"] = strconv.Itoa(*r.TableQuantity)
	}
	if r.Guests != nil {
		doc["guests"] = strconv.Itoa(*r.Guests)
	}
	return doc
}

// fromDocument is lenient: documents written by other clients may hold
// numbers where this service writes strings, or omit fields entirely.
func fromDocument(id string, data map[string]interface{}) model.Reservation {
	r := model.Reservation{
		ID:         id,
		ClientName: asString(data["clientName"]),
		Date:       asString(data["date"]),
		Phone:      asString(data["phone"]),
		Notes:      asString(data["notes"]),
		Status:     model.ParseStatus(asString(data["status"])),
	}
	if d, err := decimal.NewFromString(asString(data["reservationValue"])); err == nil {
		r.ReservationValue = d
	}
	if d, err := decimal.NewFromString(asString(data["advancePayment"])); err == nil {
		r.AdvancePayment = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	r.TableQuantity = asCount(data["tableQuantity"])
	r.Guests = asCount(data["guests"])
	if t, ok := data["createdAt"].(time.Time); ok {
		r.CreatedAt = t
	}
	return r
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return ""
}

func asCount(v interface{}) *int {
	n, err := strconv.Atoi(asString(v))
	if err != nil || n < 1 {
		return nil
	}
	return &n
}
