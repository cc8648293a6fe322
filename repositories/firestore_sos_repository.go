package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/type/latlng"

	"resqall/models"
)

// FirestoreSOSRepository persists SOS records to Cloud Firestore. Location
// is stored as a native GeoPoint and CreatedAt as a server timestamp, so
// records written from skewed device clocks still order correctly.
type FirestoreSOSRepository struct {
	client *firestore.Client
}

func NewFirestoreSOSRepository(ctx context.Context, projectID, credentialsFile string) (*FirestoreSOSRepository, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreSOSRepository{
		client: client,
	}, nil
}

func (fr *FirestoreSOSRepository) Available() bool {
	return fr.client != nil
}

func (fr *FirestoreSOSRepository) SaveSOS(ctx context.Context, record models.SOSRecord) error {
	doc := map[string]interface{}{
		"userId":    record.UserID,
		"photo":     record.PhotoURL,
		"audioUrl":  record.AudioURL,
		"to":        record.Recipients,
		"createdAt": firestore.ServerTimestamp,
	}

	if record.Location != nil {
		doc["location"] = &latlng.LatLng{
			Latitude:  record.Location.Latitude,
			Longitude: record.Location.Longitude,
		}
	}

	_, _, err := fr.client.Collection("sosHistory").Add(ctx, doc)
	if err != nil {
		logrus.Errorf("Failed to save SOS record to Firestore for user %s: %v", record.UserID, err)
		return err
	}

	logrus.Infof("SOS record saved to Firestore for user %s", record.UserID)
	return nil
}

// Close releases the Firestore client.
func (fr *FirestoreSOSRepository) Close() error {
	if fr.client == nil {
		return nil
	}
	return fr.client.Close()
}
