package mongostore

import (
	"context"
	"regexp"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type saleStore struct{ col *mongo.Collection }

func NewSaleRepository(db *mongo.Database) repository.SaleRepository {
	return &saleStore{col: db.Collection(salesCollection)}
}

func (s *saleStore) Create(ctx context.Context, sale *model.Sale) error {
	sale.UpdatedAt = time.Now().UTC()
	_, err := s.col.InsertOne(ctx, sale)
	return wrap("create sale", "sale", err)
}

func (s *saleStore) FindByID(ctx context.Context, id string) (*model.Sale, error) {
	var sale model.Sale
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&sale); err != nil {
		return nil, wrap("find sale", "sale", err)
	}
	return &sale, nil
}

func (s *saleStore) List(ctx context.Context, lq repository.ListQuery) ([]model.Sale, int64, error) {
	filter := bson.M{}
	if lq.Search != "" {
		pattern := regexp.QuoteMeta(lq.Search)
		filter["$or"] = bson.A{
			bson.M{"username": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"phoneNumber": bson.M{"$regex": pattern}},
			bson.M{"products.productName": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	for k, v := range window("timestamp", lq.From, lq.To) {
		filter[k] = v
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrap("count sales", "sale", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(lq.Offset)).
		SetLimit(int64(lq.Limit))
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, wrap("list sales", "sale", err)
	}
	sales := []model.Sale{}
	if err := cur.All(ctx, &sales); err != nil {
		return nil, 0, wrap("decode sales", "sale", err)
	}
	return sales, total, nil
}

func (s *saleStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap("delete sale", "sale", err)
	}
	if res.DeletedCount == 0 {
		return apierror.NotFound("sale")
	}
	return nil
}

func (s *saleStore) UpdateInvoice(ctx context.Context, id string, u repository.InvoiceUpdate) error {
	set := bson.M{"invoiceStatus": u.Status, "updatedAt": time.Now().UTC()}
	unset := bson.M{}
	if u.URL != nil {
		set["invoiceUrl"] = *u.URL
	}
	if u.Error != nil {
		set["invoiceError"] = *u.Error
	} else if u.Status == model.InvoiceUploaded {
		unset["invoiceError"] = ""
	}
	if u.Status != model.InvoicePending {
		unset["invoiceClaimedUntil"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if u.IncrementAttempt {
		update["$inc"] = bson.M{"invoiceAttempts": 1}
	}
	return s.update(ctx, id, update)
}

func (s *saleStore) UpdateNotification(ctx context.Context, id string, u repository.NotificationUpdate) error {
	set := bson.M{"notificationStatus": u.Status, "updatedAt": time.Now().UTC()}
	unset := bson.M{}
	if u.Error != nil {
		set["notificationError"] = *u.Error
	} else if u.Status == model.NotificationSent {
		unset["notificationError"] = ""
	}
	if u.Status != model.NotificationPending {
		unset["notificationClaimedUntil"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if u.IncrementAttempt {
		update["$inc"] = bson.M{"notificationAttempts": 1}
	}
	return s.update(ctx, id, update)
}

func (s *saleStore) ClaimInvoice(ctx context.Context, id string, c repository.InvoiceClaim) (bool, error) {
	return s.claim(ctx, id, "invoiceStatus", c.From, "invoiceClaimedUntil", c.Now, c.Lease)
}

func (s *saleStore) ClaimNotification(ctx context.Context, id string, c repository.NotificationClaim) (bool, error) {
	return s.claim(ctx, id, "notificationStatus", c.From, "notificationClaimedUntil", c.Now, c.Lease)
}

// claim matches a missing or expired lease; a null filter also matches an absent field.
func (s *saleStore) claim(ctx context.Context, id, statusField string, from interface{}, leaseField string, now time.Time, lease time.Duration) (bool, error) {
	filter := bson.M{
		"_id":       id,
		statusField: from,
		"$or": bson.A{
			bson.M{leaseField: nil},
			bson.M{leaseField: bson.M{"$lt": now}},
		},
	}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{leaseField: now.Add(lease), "updatedAt": now.UTC()}})
	if err != nil {
		return false, wrap("claim sale", "sale", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *saleStore) Touch(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"updatedAt": time.Now().UTC()}})
}

func (s *saleStore) update(ctx context.Context, id string, update bson.M) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrap("update sale status", "sale", err)
	}
	if res.MatchedCount == 0 {
		return apierror.NotFound("sale")
	}
	return nil
}

func (s *saleStore) ListRetryable(ctx context.Context, rq repository.RetryQuery) ([]model.Sale, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"invoiceStatus": model.InvoiceFailed, "invoiceAttempts": bson.M{"$lt": rq.MaxAttempts}},
		bson.M{"invoiceStatus": model.InvoicePending, "updatedAt": bson.M{"$lt": rq.StaleBefore}},
		bson.M{
			"invoiceStatus":        model.InvoiceUploaded,
			"notificationStatus":   model.NotificationFailed,
			"notificationAttempts": bson.M{"$lt": rq.MaxAttempts},
		},
		bson.M{
			"invoiceStatus":      model.InvoiceUploaded,
			"notificationStatus": model.NotificationPending,
			"updatedAt":          bson.M{"$lt": rq.StaleBefore},
		},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}).SetLimit(int64(rq.Limit))
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrap("list retryable sales", "sale", err)
	}
	var sales []model.Sale
	if err := cur.All(ctx, &sales); err != nil {
		return nil, wrap("decode retryable sales", "sale", err)
	}
	return sales, nil
}
