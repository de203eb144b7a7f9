package social

import "duendefinder/internal/config"

// Enabled returns posters for the enabled platforms in distribution order:
// Pinterest, Reddit, then X.
func Enabled(cfg *config.Config) []Poster {
	if cfg == nil {
		return nil
	}
	s := cfg.Social
	var posters []Poster
	if s.Pinterest.Enabled {
		posters = append(posters, NewPinterest(PinterestConfig{
			AccessToken:    s.Pinterest.AccessToken,
			BoardID:        s.Pinterest.BoardID,
			BaseURL:        s.Pinterest.BaseURL,
			TimeoutSeconds: s.TimeoutSeconds,
		}, nil))
	}
	if s.Reddit.Enabled {
		posters = append(posters, NewReddit(RedditConfig{
			ClientID:       s.Reddit.ClientID,
			ClientSecret:   s.Reddit.ClientSecret,
			Username:       s.Reddit.Username,
			Password:       s.Reddit.Password,
			Subreddit:      s.Reddit.Subreddit,
			UserAgent:      s.Reddit.UserAgent,
			AuthURL:        s.Reddit.AuthURL,
			BaseURL:        s.Reddit.BaseURL,
			TimeoutSeconds: s.TimeoutSeconds,
		}, nil))
	}
	if s.X.Enabled {
		posters = append(posters, NewX(XConfig{
			AccessToken:    s.X.AccessToken,
			BaseURL:        s.X.BaseURL,
			TimeoutSeconds: s.TimeoutSeconds,
		}, nil))
	}
	return posters
}
