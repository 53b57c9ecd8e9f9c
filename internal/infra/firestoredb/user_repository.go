package firestoredb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"

	"bitewise_backend/internal/domain/user"
)

type UserRepository struct {
	client *firestore.Client
	logger logrus.FieldLogger
}

func NewUserRepository(client *firestore.Client, logger logrus.FieldLogger) *UserRepository {
	return &UserRepository{client: client, logger: logger}
}

// ListAll returns every user document. Documents that can't be read as a user are
// logged and left out so one bad record doesn't hide everyone else.
func (r *UserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	docs, err := r.client.Collection(usersCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	users := make([]*user.User, 0, len(docs))
	for _, doc := range docs {
		u, err := userFromData(doc.Ref.ID, doc.Data())
		if err != nil {
			r.logger.WithError(err).WithField("user_id", doc.Ref.ID).Error("Skipping undecodable user document")
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// ClearPushToken deletes the fcmToken field from the user document.
func (r *UserRepository) ClearPushToken(ctx context.Context, userID string) error {
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: fieldPushToken, Value: firestore.Delete},
	})
	if err != nil {
		return fmt.Errorf("error clearing push token: %w", err)
	}
	return nil
}

// userFromData reads the fields the mobile app writes. Goals saved as numeric
// strings are accepted, the username is only cosmetic and is stringified.
func userFromData(id string, data map[string]interface{}) (*user.User, error) {
	u := &user.User{ID: id}

	switch v := data[fieldPushToken].(type) {
	case nil:
	case string:
		u.PushToken = v
	default:
		return nil, fmt.Errorf("field %s: unexpected type %T", fieldPushToken, v)
	}

	switch v := data[fieldCalorieGoal].(type) {
	case nil:
	case int64:
		u.DailyCalorieGoal = float64(v)
	case float64:
		u.DailyCalorieGoal = v
	case string:
		goal, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldCalorieGoal, err)
		}
		u.DailyCalorieGoal = goal
	default:
		return nil, fmt.Errorf("field %s: unexpected type %T", fieldCalorieGoal, v)
	}

	if v, ok := data[fieldUsername]; ok && v != nil {
		u.Username = fmt.Sprint(v)
	}
	return u, nil
}
