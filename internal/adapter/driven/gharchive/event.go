package gharchive

import (
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

const pullRequestEventType = "PullRequestEvent"

// rawEvent is the subset of an archive event needed to track pull requests.
type rawEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest *struct {
		User struct {
			Login string `json:"login"`
		} `json:"user"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
		Base      struct {
			Repo struct {
				FullName string  `json:"full_name"`
				Language *string `json:"language"`
			} `json:"repo"`
		} `json:"base"`
	} `json:"pull_request"`
}

// decodeEvent decodes one archive line. ok is false for events of other types.
// Pull request events missing their repository, number or pull request body
// are reported as errors.
func decodeEvent(line []byte) (model.PullEvent, bool, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.PullEvent{}, false, err
	}
	if raw.Type != pullRequestEventType {
		return model.PullEvent{}, false, nil
	}

	var p pullRequestPayload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return model.PullEvent{}, false, err
	}
	if p.PullRequest == nil {
		return model.PullEvent{}, false, errors.New("pull request event without pull_request")
	}
	if p.Number == 0 {
		return model.PullEvent{}, false, errors.New("pull request event without number")
	}
	repo := p.PullRequest.Base.Repo
	if repo.FullName == "" {
		return model.PullEvent{}, false, errors.New("pull request event without base repository")
	}

	var language string
	if repo.Language != nil {
		language = *repo.Language
	}

	return model.PullEvent{
		RepoID:    repo.FullName,
		Number:    p.Number,
		Action:    p.Action,
		Language:  language,
		Author:    p.PullRequest.User.Login,
		CreatedAt: p.PullRequest.CreatedAt,
		UpdatedAt: p.PullRequest.UpdatedAt,
	}, true, nil
}
