package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lysyi3m/feed-inspector/app/database"
	"github.com/lysyi3m/feed-inspector/app/feed"
	"github.com/lysyi3m/feed-inspector/app/tasks"
)

type Handler struct {
	jobRepo      database.JobRepository
	activityRepo database.ActivityRepository
	profiles     *feed.ProfileCache
	scheduler    tasks.TaskSchedulerInterface
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

type RunFeedRequest struct {
	PartnerID           flexString `json:"partner_id"`
	FeedFile            string     `json:"s3_feed_file"`
	OutputPath          string     `json:"s3_output_path"`
	DistinguishID       flexString `json:"distinguish_id"`
	JobID               int64      `json:"job_id"`
	Type                string     `json:"type"`
	CallbackURL         string     `json:"callback_url"`
	RunAt               string     `json:"run_at"`
	AffiliateMerchantID flexString `json:"affiliate_merchant_id"`
}

// missingFields lists required fields left empty, in request order.
func (r RunFeedRequest) missingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"partner_id", string(r.PartnerID)},
		{"s3_feed_file", r.FeedFile},
		{"s3_output_path", r.OutputPath},
		{"distinguish_id", string(r.DistinguishID)},
	}

	var missing []string
	for _, field := range required {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
