package sqlgen

import (
	"context"
	"strings"
	"testing"
)

// ─── Classification ─────────────────────────────────────────────────────────

func TestClassify(t *testing.T) {
	tests := []struct {
		question string
		kind     IntentKind
		entity   Entity
		sql      string
	}{
		{"Show all candidates", IntentListEntity, EntityCandidates, listCandidatesSQL},
		{"list candidates please", IntentListEntity, EntityCandidates, listCandidatesSQL},
		{"show users", IntentListEntity, EntityUsers, listUsersSQL},
		{"List votes", IntentListEntity, EntityVotes, listVotesSQL},
		{"How many users are there?", IntentCountEntity, EntityUsers, countUsersSQL},
		{"total voters", IntentCountEntity, EntityUsers, countUsersSQL},
		{"How many votes does each candidate have?", IntentVoteAggregate, EntityNone, voteAggregateSQL},
		{"How many votes does Asha (candidate) have?", IntentVoteAggregate, EntityNone, voteAggregateSQL},
		{"Which users have not voted yet?", IntentNonVoters, EntityNone, nonVotersSQL},
		{"people without vote", IntentNonVoters, EntityNone, nonVotersSQL},
		{"Which party has the most support?", IntentPartyLeader, EntityNone, partyLeaderSQL},
		{"winning party", IntentPartyLeader, EntityNone, partyLeaderSQL},
		{"Who voted?", IntentWhoVoted, EntityNone, whoVotedSQL},
		{"How many candidates are registered?", IntentGenericCount, EntityCandidates, countCandidatesSQL},
		{"count the contestants", IntentGenericCount, EntityCandidates, countCandidatesSQL},
		{"total number of ballots", IntentGenericCount, EntityVotes, countVotesSQL},
		{"how many people signed up", IntentGenericCount, EntityUsers, countUsersSQL},
		{"how many records exist", IntentGenericCount, EntityNone, countAllSQL},
		{"what's the weather", IntentFallback, EntityNone, fallbackSQL},
		{"", IntentFallback, EntityNone, fallbackSQL},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := Classify(tt.question)
			if got.Kind != tt.kind {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.question, got.Kind, tt.kind)
			}
			if got.Entity != tt.entity {
				t.Errorf("Classify(%q).Entity = %q, want %q", tt.question, got.Entity, tt.entity)
			}
			if sql := got.SQL(); sql != tt.sql {
				t.Errorf("SQL() = %q, want %q", sql, tt.sql)
			}
		})
	}
}

func TestClassifySynonymsAgree(t *testing.T) {
	groups := [][]string{
		{"how many users", "number of users", "count users", "total users",
			"how many voters", "number of voters", "count voters", "total voters"},
		{"all candidates", "list candidates", "show candidates"},
		{"not voted", "haven't voted", "without vote", "no vote"},
	}
	for _, group := range groups {
		want := Classify(group[0]).SQL()
		for _, q := range group[1:] {
			if got := Classify(q).SQL(); got != want {
				t.Errorf("Classify(%q).SQL() = %q, want %q", q, got, want)
			}
		}
	}
}

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		question string
		want     IntentKind
	}{
		// listing beats counting
		{"show users and how many users", IntentListEntity},
		// user count beats the vote aggregate
		{"how many voters gave votes to a candidate", IntentCountEntity},
		// aggregate beats top-N
		{"top votes per candidate", IntentVoteAggregate},
		// top-N beats who-voted
		{"who voted for the top 3 candidates", IntentTopN},
		// non-voters beat who-voted
		{"who has not voted", IntentNonVoters},
		// party leader beats generic count
		{"how many parties, which party has the highest count", IntentPartyLeader},
		// vote aggregate beats party leader
		{"Which party's candidate got the most votes?", IntentVoteAggregate},
		// party leader beats who-voted
		{"who voted for the winning party", IntentPartyLeader},
		// non-voters beat generic count
		{"how many people have not voted", IntentNonVoters},
		// user count beats non-voters
		{"how many users have not voted", IntentCountEntity},
		// who-voted beats generic count
		{"count who voted", IntentWhoVoted},
	}
	for _, tt := range tests {
		if got := Classify(tt.question).Kind; got != tt.want {
			t.Errorf("Classify(%q).Kind = %v, want %v", tt.question, got, tt.want)
		}
	}
}

// ─── Top-N limit ────────────────────────────────────────────────────────────

func TestTopNLimit(t *testing.T) {
	tests := []struct {
		question string
		limit    int
	}{
		{"top 3 candidates", 3},
		{"Top candidates", DefaultTopN},
		{"show me the top 10 candidates, not 3", 10},
		{"top3 candidates", DefaultTopN},
		{"top candidates in 2024", 2024},
	}
	for _, tt := range tests {
		got := Classify(tt.question)
		if got.Kind != IntentTopN {
			t.Fatalf("Classify(%q).Kind = %v, want top_n", tt.question, got.Kind)
		}
		if got.Limit != tt.limit {
			t.Errorf("Classify(%q).Limit = %d, want %d", tt.question, got.Limit, tt.limit)
		}
	}

	sql := Classify("top 3 candidates").SQL()
	if !strings.HasSuffix(sql, " LIMIT 3") {
		t.Errorf("SQL() = %q, want LIMIT 3 suffix", sql)
	}
	if !strings.HasPrefix(sql, voteAggregateSQL) {
		t.Errorf("SQL() = %q, want aggregate prefix", sql)
	}
}

// ─── Generator ──────────────────────────────────────────────────────────────

func TestRuleGeneratorIdempotent(t *testing.T) {
	g := NewRuleGenerator()
	first, err := g.Generate(context.Background(), "Who are the top 5 candidates by vote count?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		again, _ := g.Generate(context.Background(), "Who are the top 5 candidates by vote count?")
		if again != first {
			t.Fatalf("Generate() not deterministic: %q vs %q", again, first)
		}
	}
	if first != voteAggregateSQL+" LIMIT 5" {
		t.Errorf("Generate() = %q", first)
	}
	if strings.Contains(first, "\n") {
		t.Errorf("Generate() returned multi-line SQL")
	}
	if g.Name() != "rules" {
		t.Errorf("Name() = %q", g.Name())
	}
}

func TestIntentKindString(t *testing.T) {
	if IntentNonVoters.String() != "non_voters" {
		t.Errorf("String() = %q", IntentNonVoters.String())
	}
	if IntentKind(99).String() != "unknown" {
		t.Errorf("String() = %q", IntentKind(99).String())
	}
}
