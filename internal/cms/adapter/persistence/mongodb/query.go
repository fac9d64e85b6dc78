package mongodb

import (
	"fmt"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// buildFilter translates query filters into a MongoDB filter document.
func buildFilter(filters []model.Filter) (bson.M, error) {
	if len(filters) == 0 {
		return bson.M{}, nil
	}
	and := make([]bson.M, 0, len(filters))
	for _, f := range filters {
		single, err := singleFilter(f)
		if err != nil {
			return nil, err
		}
		and = append(and, single)
	}
	if len(and) == 1 {
		return and[0], nil
	}
	return bson.M{"$and": and}, nil
}

func singleFilter(f model.Filter) (bson.M, error) {
	switch f.Operator {
	case model.OperatorEqual:
		return bson.M{f.Field: f.Value}, nil
	case model.OperatorNotEqual:
		return bson.M{f.Field: bson.M{"$ne": f.Value}}, nil
	case model.OperatorGreaterThan:
		return bson.M{f.Field: bson.M{"$gt": f.Value}}, nil
	case model.OperatorGreaterThanOrEqual:
		return bson.M{f.Field: bson.M{"$gte": f.Value}}, nil
	case model.OperatorLessThan:
		return bson.M{f.Field: bson.M{"$lt": f.Value}}, nil
	case model.OperatorLessThanOrEqual:
		return bson.M{f.Field: bson.M{"$lte": f.Value}}, nil
	case model.OperatorIn:
		return bson.M{f.Field: bson.M{"$in": f.Value}}, nil
	case model.OperatorNotIn:
		return bson.M{f.Field: bson.M{"$nin": f.Value}}, nil
	case model.OperatorArrayContains:
		return bson.M{f.Field: bson.M{"$elemMatch": bson.M{"$eq": f.Value}}}, nil
	}
	return nil, fmt.Errorf("operator %q: %w", f.Operator, errors.ErrInvalidQuery)
}

// buildFindOptions maps ordering and pagination. Results are tie-broken on _id.
func buildFindOptions(query model.Query) *options.FindOptions {
	opts := options.Find()
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}
	if query.Offset > 0 {
		opts.SetSkip(int64(query.Offset))
	}
	if len(query.Orders) > 0 {
		sort := bson.D{}
		for _, o := range query.Orders {
			dir := 1
			if o.Direction == model.Descending {
				dir = -1
			}
			sort = append(sort, bson.E{Key: o.Field, Value: dir})
		}
		sort = append(sort, bson.E{Key: "_id", Value: 1})
		opts.SetSort(sort)
	}
	return opts
}

// buildUpdate splits fields into $set and $unset.
func buildUpdate(fields map[string]interface{}) bson.M {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		if model.IsDeleteField(v) {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
