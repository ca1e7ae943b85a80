// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package feed

import "github.com/poiesic/newsdesk/core"

// Feed is a named feed URL.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NewsFeeds are the top-stories feeds of major news sites.
func NewsFeeds() []Feed {
	return []Feed{
		{Name: "CNN Top Stories", URL: "http://rss.cnn.com/rss/cnn_topstories.rss"},
		{Name: "BBC Top Stories", URL: "https://feeds.bbci.co.uk/news/rss.xml"},
		{Name: "NY Times Top Stories", URL: "https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml"},
	}
}

// BlogFeeds are developer blog feeds.
func BlogFeeds() []Feed {
	return []Feed{
		{Name: ".NET blog", URL: "https://devblogs.microsoft.com/dotnet/feed/"},
		{Name: "Semantic Kernel blog", URL: "https://devblogs.microsoft.com/semantic-kernel/feed/"},
		{Name: "Azure AI Foundry blog", URL: "https://devblogs.microsoft.com/foundry/feed/"},
	}
}

// TeamMembers is the sample team roster. Each member's description is the
// text that gets embedded.
func TeamMembers() []core.SourceItem {
	return []core.SourceItem{
		{
			Title:       "Peter",
			Description: "Senior developer working on multiple projects.",
			Tags:        []string{"peter", "senior", "developer"},
		},
		{
			Title:       "Hanne",
			Description: "Project manager working on 1-2 projects.",
			Tags:        []string{"hanne", "project manager"},
		},
		{
			Title:       "Kim",
			Description: "Architect working on the biggest projects.",
			Tags:        []string{"kim", "architect"},
		},
	}
}

// Sources builds one RSSSource per feed.
func Sources(feeds []Feed, opts ...RSSOption) []Source {
	sources := make([]Source, 0, len(feeds))
	for _, f := range feeds {
		sources = append(sources, NewRSSSource(f.Name, f.URL, opts...))
	}
	return sources
}
