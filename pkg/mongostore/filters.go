package mongostore

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// atRevision matches the loan only while it is still at rev.
func atRevision(id string, rev int64) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "revision", Value: rev},
	}
}

func pendingOfDocument(documentPID string) bson.D {
	return bson.D{
		{Key: "document_pid", Value: documentPID},
		{Key: "state", Value: bson.D{{Key: "$in", Value: circulation.RequestStates}}},
	}
}

func activeOnItem(itemPID, excludingLoanID string) bson.D {
	filter := bson.D{
		{Key: "item_pid", Value: itemPID},
		{Key: "state", Value: bson.D{{Key: "$in", Value: circulation.ActiveStates}}},
	}
	if excludingLoanID != "" {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludingLoanID}}})
	}
	return filter
}

func inStates(states []circulation.State) bson.D {
	return bson.D{{Key: "state", Value: bson.D{{Key: "$in", Value: states}}}}
}

// queueOrder sorts a request queue oldest first, ties broken by id.
func queueOrder() *options.FindOptionsBuilder {
	return options.Find().SetSort(bson.D{
		{Key: "request_date", Value: 1},
		{Key: "_id", Value: 1},
	})
}

// activeItemIndex is the name of the unique index over items of active loans.
const activeItemIndex = "loans_active_item_unique"

// activeItems selects the loans covered by activeItemIndex.
func activeItems() bson.D {
	return bson.D{
		{Key: "item_pid", Value: bson.D{{Key: "$exists", Value: true}}},
		{Key: "state", Value: bson.D{{Key: "$in", Value: circulation.ActiveStates}}},
	}
}

func indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "document_pid", Value: 1}, {Key: "state", Value: 1}, {Key: "request_date", Value: 1}}},
		{Keys: bson.D{{Key: "item_pid", Value: 1}, {Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{
			Keys: bson.D{{Key: "item_pid", Value: 1}},
			Options: options.Index().
				SetName(activeItemIndex).
				SetUnique(true).
				SetPartialFilterExpression(activeItems()),
		},
	}
}
