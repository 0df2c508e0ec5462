package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
	"community-gov.backend/internal/infrastructure/audit"
	"community-gov.backend/internal/infrastructure/blockchain"
)

// In-memory fakes for the repository interfaces, the chain reader and
// the audit sink. They mirror the semantics of the real sqlite-backed
// implementations closely enough for pipeline and sweep tests.

type memSink struct {
	mu      sync.Mutex
	entries map[string][]audit.Entry
}

func newMemSink() *memSink {
	return &memSink{entries: make(map[string][]audit.Entry)}
}

func (s *memSink) LogEvent(name string, entry audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = append(s.entries[name], entry)
}

func (s *memSink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[name])
}

type memUsers struct {
	mu       sync.Mutex
	byWallet map[string]*entities.User
}

func newMemUsers() *memUsers {
	return &memUsers{byWallet: make(map[string]*entities.User)}
}

func (r *memUsers) GetByWallet(ctx context.Context, walletAddress string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byWallet[walletAddress]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memUsers) GetOrCreateByWallet(ctx context.Context, walletAddress string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byWallet[walletAddress]; ok {
		copied := *u
		return &copied, nil
	}
	now := time.Now().UTC()
	u := &entities.User{
		ID:            uuid.New(),
		WalletAddress: walletAddress,
		DisplayName:   entities.DefaultDisplayName(walletAddress),
		Status:        entities.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.byWallet[walletAddress] = u
	copied := *u
	return &copied, nil
}

func (r *memUsers) ListActive(ctx context.Context) ([]*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.User
	for _, u := range r.byWallet {
		if u.Status == entities.StatusActive {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memUsers) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byWallet {
		if u.ID == id {
			u.Status = status
			u.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domainerrors.ErrNotFound
}

type memCommunities struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*entities.Community
	byChain map[string]uuid.UUID
	listErr error
}

func newMemCommunities() *memCommunities {
	return &memCommunities{
		rows:    make(map[uuid.UUID]*entities.Community),
		byChain: make(map[string]uuid.UUID),
	}
}

func (r *memCommunities) GetByOnChainID(ctx context.Context, onChainID string) (*entities.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byChain[onChainID]; ok {
		copied := *r.rows[id]
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memCommunities) Create(ctx context.Context, community *entities.Community) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byChain[community.OnChainID]; ok {
		return domainerrors.ErrAlreadyExists
	}
	if community.ID == uuid.Nil {
		community.ID = uuid.New()
	}
	now := time.Now().UTC()
	community.CreatedAt = now
	community.UpdatedAt = now
	copied := *community
	r.rows[community.ID] = &copied
	r.byChain[community.OnChainID] = community.ID
	return nil
}

func (r *memCommunities) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.CommunityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if record.BlockNumber > 0 && record.BlockNumber < row.BlockNumber {
		return domainerrors.ErrStaleBlock
	}
	row.Name = record.Name
	row.Description.SetValid(record.Description)
	row.Config = record.Config
	if record.BlockNumber > 0 {
		row.BlockNumber = record.BlockNumber
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memCommunities) ListActive(ctx context.Context) ([]*entities.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entities.Community
	for _, c := range r.rows {
		if c.Status == entities.StatusActive {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memCommunities) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memCommunities) CountActive(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.rows {
		if c.Status == entities.StatusActive {
			n++
		}
	}
	return n, nil
}

func (r *memCommunities) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.rows {
		if c.Status == entities.StatusActive && !c.UpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type memMemberships struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]*entities.Membership
	byPair      map[string]uuid.UUID
	communities *memCommunities
	users       *memUsers
}

func newMemMemberships(communities *memCommunities, users *memUsers) *memMemberships {
	return &memMemberships{
		rows:        make(map[uuid.UUID]*entities.Membership),
		byPair:      make(map[string]uuid.UUID),
		communities: communities,
		users:       users,
	}
}

func pairKey(a, b uuid.UUID) string { return a.String() + "|" + b.String() }

func (r *memMemberships) GetByCommunityAndUser(ctx context.Context, communityID, userID uuid.UUID) (*entities.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPair[pairKey(communityID, userID)]; ok {
		copied := *r.rows[id]
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memMemberships) Upsert(ctx context.Context, membership *entities.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(membership.CommunityID, membership.UserID)
	now := time.Now().UTC()
	if id, ok := r.byPair[key]; ok {
		row := r.rows[id]
		row.Role = membership.Role
		row.Status = membership.Status
		row.Network = membership.Network
		row.TransactionID = membership.TransactionID
		row.UpdatedAt = now
		membership.ID = id
		return nil
	}
	if membership.ID == uuid.Nil {
		membership.ID = uuid.New()
	}
	membership.CreatedAt = now
	membership.UpdatedAt = now
	copied := *membership
	r.rows[membership.ID] = &copied
	r.byPair[key] = membership.ID
	return nil
}

func (r *memMemberships) ListActive(ctx context.Context) ([]*entities.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Membership
	for _, m := range r.rows {
		if m.Status != entities.StatusActive {
			continue
		}
		copied := *m
		if r.communities != nil {
			for _, c := range r.communities.rows {
				if c.ID == m.CommunityID {
					copied.CommunityOnChainID = c.OnChainID
				}
			}
		}
		if r.users != nil {
			for _, u := range r.users.byWallet {
				if u.ID == m.UserID {
					copied.WalletAddress = u.WalletAddress
				}
			}
		}
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memMemberships) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.MembershipRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	row.Role = entities.ParseMemberRole(record.Role)
	row.Status = entities.EntityStatus(record.Status)
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memMemberships) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memMemberships) CountActive(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.rows {
		if m.Status == entities.StatusActive {
			n++
		}
	}
	return n, nil
}

func (r *memMemberships) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.rows {
		if m.Status == entities.StatusActive && !m.UpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memMemberships) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.rows {
		if m.CommunityID == communityID {
			n++
		}
	}
	return n, nil
}

type memQuestions struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*entities.VotingQuestion
	byChain map[string]uuid.UUID
}

func newMemQuestions() *memQuestions {
	return &memQuestions{
		rows:    make(map[uuid.UUID]*entities.VotingQuestion),
		byChain: make(map[string]uuid.UUID),
	}
}

func (r *memQuestions) GetByOnChainID(ctx context.Context, onChainID string) (*entities.VotingQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byChain[onChainID]; ok {
		copied := *r.rows[id]
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memQuestions) Create(ctx context.Context, question *entities.VotingQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byChain[question.OnChainID]; ok {
		return domainerrors.ErrAlreadyExists
	}
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	now := time.Now().UTC()
	question.CreatedAt = now
	question.UpdatedAt = now
	copied := *question
	r.rows[question.ID] = &copied
	r.byChain[question.OnChainID] = question.ID
	return nil
}

func (r *memQuestions) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.QuestionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if record.BlockNumber > 0 && record.BlockNumber < row.BlockNumber {
		return domainerrors.ErrStaleBlock
	}
	row.Title = record.Title
	row.Description.SetValid(record.Description)
	row.Options = record.Options
	row.Deadline = record.Deadline
	if record.Active {
		row.Status = entities.StatusActive
	} else {
		row.Status = entities.StatusInactive
	}
	if record.BlockNumber > 0 {
		row.BlockNumber = record.BlockNumber
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memQuestions) ListActive(ctx context.Context) ([]*entities.VotingQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.VotingQuestion
	for _, q := range r.rows {
		if q.Status == entities.StatusActive {
			copied := *q
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memQuestions) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memQuestions) CountActive(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, q := range r.rows {
		if q.Status == entities.StatusActive {
			n++
		}
	}
	return n, nil
}

func (r *memQuestions) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, q := range r.rows {
		if q.Status == entities.StatusActive && !q.UpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type memVotes struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*entities.Vote
	byPair    map[string]uuid.UUID
	questions *memQuestions
	users     *memUsers
}

func newMemVotes(questions *memQuestions, users *memUsers) *memVotes {
	return &memVotes{
		rows:      make(map[uuid.UUID]*entities.Vote),
		byPair:    make(map[string]uuid.UUID),
		questions: questions,
		users:     users,
	}
}

func (r *memVotes) GetByQuestionAndUser(ctx context.Context, questionID, userID uuid.UUID) (*entities.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPair[pairKey(questionID, userID)]; ok {
		copied := *r.rows[id]
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memVotes) Upsert(ctx context.Context, vote *entities.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(vote.QuestionID, vote.UserID)
	now := time.Now().UTC()
	if id, ok := r.byPair[key]; ok {
		row := r.rows[id]
		row.VoteData = vote.VoteData
		row.Signature = vote.Signature
		row.Status = vote.Status
		row.Network = vote.Network
		row.TransactionID = vote.TransactionID
		row.UpdatedAt = now
		vote.ID = id
		return nil
	}
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	vote.CreatedAt = now
	vote.UpdatedAt = now
	copied := *vote
	r.rows[vote.ID] = &copied
	r.byPair[key] = vote.ID
	return nil
}

func (r *memVotes) ListActive(ctx context.Context) ([]*entities.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Vote
	for _, v := range r.rows {
		if v.Status != entities.StatusActive {
			continue
		}
		copied := *v
		if r.questions != nil {
			for _, q := range r.questions.rows {
				if q.ID == v.QuestionID {
					copied.QuestionOnChainID = q.OnChainID
				}
			}
		}
		if r.users != nil {
			for _, u := range r.users.byWallet {
				if u.ID == v.UserID {
					copied.WalletAddress = u.WalletAddress
				}
			}
		}
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memVotes) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.VoteRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	row.VoteData = record.VoteData
	row.Signature = record.Signature
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memVotes) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memVotes) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memVotes) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.rows {
		if !v.UpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memVotes) CountByQuestion(ctx context.Context, questionID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.rows {
		if v.QuestionID == questionID {
			n++
		}
	}
	return n, nil
}

// fakeReader answers chain reads from in-memory maps. When down is set
// every call fails with a transient error.
type fakeReader struct {
	mu          sync.Mutex
	communities map[string]*entities.CommunityRecord
	memberships map[string]*entities.MembershipRecord
	questions   map[string]*entities.QuestionRecord
	votes       map[string]*entities.VoteRecord
	accounts    map[string]bool
	down        bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		communities: make(map[string]*entities.CommunityRecord),
		memberships: make(map[string]*entities.MembershipRecord),
		questions:   make(map[string]*entities.QuestionRecord),
		votes:       make(map[string]*entities.VoteRecord),
		accounts:    make(map[string]bool),
	}
}

func (f *fakeReader) transient() error {
	return fmt.Errorf("%w: rpc unreachable", domainerrors.ErrChainUnavailable)
}

func (f *fakeReader) GetCommunityData(ctx context.Context, onChainID string) (*entities.CommunityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, f.transient()
	}
	if r, ok := f.communities[onChainID]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (f *fakeReader) GetMembershipData(ctx context.Context, onChainID, walletAddress string) (*entities.MembershipRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, f.transient()
	}
	if r, ok := f.memberships[onChainID+"|"+walletAddress]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (f *fakeReader) GetQuestionData(ctx context.Context, onChainID string) (*entities.QuestionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, f.transient()
	}
	if r, ok := f.questions[onChainID]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (f *fakeReader) GetVoteData(ctx context.Context, onChainID, walletAddress string) (*entities.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, f.transient()
	}
	if r, ok := f.votes[onChainID+"|"+walletAddress]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (f *fakeReader) AccountExists(ctx context.Context, walletAddress string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return false, f.transient()
	}
	return f.accounts[walletAddress], nil
}

func (f *fakeReader) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

type fakeReaderProvider struct {
	reader blockchain.ChainReader
	err    error
}

func (f *fakeReaderProvider) GetReader(network string) (blockchain.ChainReader, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reader, nil
}
