package mongostore

import (
	"context"
	"regexp"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productStore struct{ col *mongo.Collection }

func NewProductRepository(db *mongo.Database) repository.ProductRepository {
	return &productStore{col: db.Collection(productsCollection)}
}

func (s *productStore) Create(ctx context.Context, p *model.Product) error {
	_, err := s.col.InsertOne(ctx, p)
	return wrap("create product", "product", err)
}

func (s *productStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, wrap("find product", "product", err)
	}
	return &p, nil
}

func (s *productStore) List(ctx context.Context, lq repository.ListQuery) ([]model.Product, int64, error) {
	filter := bson.M{}
	if lq.Search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(lq.Search), "$options": "i"}
	}
	for k, v := range window("createdAt", lq.From, lq.To) {
		filter[k] = v
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrap("count products", "product", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(lq.Offset)).
		SetLimit(int64(lq.Limit))
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, wrap("list products", "product", err)
	}
	products := []model.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, wrap("decode products", "product", err)
	}
	return products, total, nil
}

func (s *productStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap("delete product", "product", err)
	}
	if res.DeletedCount == 0 {
		return apierror.NotFound("product")
	}
	return nil
}
