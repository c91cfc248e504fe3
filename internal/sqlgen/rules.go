package sqlgen

import (
	"context"
	"strconv"
	"strings"
)

// IntentKind tags what a question asks for.
type IntentKind int

const (
	IntentFallback IntentKind = iota
	IntentListEntity
	IntentCountEntity
	IntentVoteAggregate
	IntentTopN
	IntentNonVoters
	IntentPartyLeader
	IntentWhoVoted
	IntentGenericCount
)

var intentNames = map[IntentKind]string{
	IntentFallback:      "fallback",
	IntentListEntity:    "list_entity",
	IntentCountEntity:   "count_entity",
	IntentVoteAggregate: "vote_aggregate",
	IntentTopN:          "top_n",
	IntentNonVoters:     "non_voters",
	IntentPartyLeader:   "party_leader",
	IntentWhoVoted:      "who_voted",
	IntentGenericCount:  "generic_count",
}

func (k IntentKind) String() string {
	if s, ok := intentNames[k]; ok {
		return s
	}
	return "unknown"
}

// Entity is one of the three tables a question can be about.
type Entity string

const (
	EntityNone       Entity = ""
	EntityUsers      Entity = "users"
	EntityCandidates Entity = "candidates"
	EntityVotes      Entity = "votes"
)

// DefaultTopN is used when a "top candidates" question carries no number.
const DefaultTopN = 5

const (
	listCandidatesSQL  = "SELECT id, name, party FROM candidates ORDER BY id"
	listUsersSQL       = "SELECT id, name, email FROM users ORDER BY id"
	listVotesSQL       = "SELECT v.id, u.name as user, c.name as candidate, c.party FROM votes v JOIN users u ON v.user_id = u.id JOIN candidates c ON v.candidate_id = c.id"
	countUsersSQL      = "SELECT COUNT(*) as total_users FROM users"
	countCandidatesSQL = "SELECT COUNT(*) as total_candidates FROM candidates"
	countVotesSQL      = "SELECT COUNT(*) as total_votes FROM votes"
	countAllSQL        = "SELECT (SELECT COUNT(*) FROM users) as total_users, (SELECT COUNT(*) FROM candidates) as total_candidates, (SELECT COUNT(*) FROM votes) as total_votes"
	voteAggregateSQL   = "SELECT c.id, c.name, c.party, COUNT(v.id) as vote_count FROM candidates c LEFT JOIN votes v ON c.id = v.candidate_id GROUP BY c.id, c.name, c.party ORDER BY vote_count DESC"
	nonVotersSQL       = "SELECT u.id, u.name, u.email FROM users u LEFT JOIN votes v ON u.id = v.user_id WHERE v.id IS NULL"
	partyLeaderSQL     = "SELECT c.party, COUNT(v.id) as vote_count FROM candidates c LEFT JOIN votes v ON c.id = v.candidate_id GROUP BY c.party ORDER BY vote_count DESC"
	whoVotedSQL        = "SELECT u.id, u.name, u.email, c.name as voted_for, c.party FROM users u JOIN votes v ON u.id = v.user_id JOIN candidates c ON v.candidate_id = c.id ORDER BY u.id"
	fallbackSQL        = "SELECT * FROM users ORDER BY id LIMIT 10"
)

// Intent is the classified meaning of a question. Entity is set for list and
// count intents, Limit for top-N.
type Intent struct {
	Kind   IntentKind
	Entity Entity
	Limit  int
}

// SQL renders the intent as a single-line statement.
func (i Intent) SQL() string {
	switch i.Kind {
	case IntentListEntity:
		switch i.Entity {
		case EntityCandidates:
			return listCandidatesSQL
		case EntityUsers:
			return listUsersSQL
		case EntityVotes:
			return listVotesSQL
		}
	case IntentCountEntity, IntentGenericCount:
		switch i.Entity {
		case EntityUsers:
			return countUsersSQL
		case EntityCandidates:
			return countCandidatesSQL
		case EntityVotes:
			return countVotesSQL
		default:
			return countAllSQL
		}
	case IntentVoteAggregate:
		return voteAggregateSQL
	case IntentTopN:
		n := i.Limit
		if n <= 0 {
			n = DefaultTopN
		}
		return voteAggregateSQL + " LIMIT " + strconv.Itoa(n)
	case IntentNonVoters:
		return nonVotersSQL
	case IntentPartyLeader:
		return partyLeaderSQL
	case IntentWhoVoted:
		return whoVotedSQL
	}
	return fallbackSQL
}

var listPhrases = []struct {
	entity  Entity
	phrases []string
}{
	{EntityCandidates, []string{"all candidates", "list candidates", "show candidates"}},
	{EntityUsers, []string{"all users", "list users", "show users"}},
	{EntityVotes, []string{"all votes", "list votes", "show votes"}},
}

var (
	userCountPhrases = []string{
		"how many users", "number of users", "count users", "total users",
		"how many voters", "number of voters", "count voters", "total voters",
	}
	nonVoterPhrases = []string{"not voted", "haven't voted", "without vote", "no vote"}
	leaderWords     = []string{"most", "highest", "winning"}
	countPhrases    = []string{"how many", "count", "total number", "number of"}
	entityWords     = []struct {
		entity Entity
		words  []string
	}{
		{EntityUsers, []string{"user", "voter", "people"}},
		{EntityCandidates, []string{"candidate", "contestants"}},
		{EntityVotes, []string{"vote", "ballot"}},
	}
)

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Classify maps a question to an intent. Matching is case-insensitive
// substring containment and the first rule that matches wins.
func Classify(question string) Intent {
	q := strings.ToLower(question)

	for _, lp := range listPhrases {
		if containsAny(q, lp.phrases) {
			return Intent{Kind: IntentListEntity, Entity: lp.entity}
		}
	}

	if containsAny(q, userCountPhrases) {
		return Intent{Kind: IntentCountEntity, Entity: EntityUsers}
	}

	// Named candidates are not narrowed; every candidate is counted.
	if strings.Contains(q, "votes") && strings.Contains(q, "candidate") {
		return Intent{Kind: IntentVoteAggregate}
	}

	if strings.Contains(q, "top") && strings.Contains(q, "candidate") {
		return Intent{Kind: IntentTopN, Limit: topN(q)}
	}

	if containsAny(q, nonVoterPhrases) {
		return Intent{Kind: IntentNonVoters}
	}

	if strings.Contains(q, "party") && containsAny(q, leaderWords) {
		return Intent{Kind: IntentPartyLeader}
	}

	if strings.Contains(q, "who") && strings.Contains(q, "voted") {
		return Intent{Kind: IntentWhoVoted}
	}

	if containsAny(q, countPhrases) {
		for _, ew := range entityWords {
			if containsAny(q, ew.words) {
				return Intent{Kind: IntentGenericCount, Entity: ew.entity}
			}
		}
		return Intent{Kind: IntentGenericCount}
	}

	return Intent{Kind: IntentFallback}
}

// topN returns the first whitespace-separated token made only of digits.
func topN(q string) int {
	for _, tok := range strings.Fields(q) {
		if !isDigits(tok) {
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil && n > 0 {
			return n
		}
	}
	return DefaultTopN
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RuleGenerator answers questions with fixed SQL templates. It never errors.
type RuleGenerator struct{}

func NewRuleGenerator() *RuleGenerator {
	return &RuleGenerator{}
}

func (g *RuleGenerator) Name() string { return "rules" }

func (g *RuleGenerator) Generate(_ context.Context, question string) (string, error) {
	return Classify(question).SQL(), nil
}
