// Package statemachine is a reference implementation of raft.StateMachine:
// an in-memory auction ledger understanding the NEW_USER, NEW_AUCTION,
// CLOSE_AUCTION, and NEW_BID command vocabulary. Real deployments plug in
// their own persistent backend behind the same interface; this one exists
// to give the consensus core something to drive end to end.
package statemachine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	raftcore "github.com/ghostfox/raftcore/raft"
)

var (
	ErrUserExists      = errors.New("statemachine: user already exists")
	ErrAuctionExists   = errors.New("statemachine: auction already exists")
	ErrAuctionNotFound = errors.New("statemachine: auction not found")
	ErrAuctionClosed   = errors.New("statemachine: auction is closed")
	ErrBidTooLow       = errors.New("statemachine: bid does not exceed current high bid")
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Auction struct {
	ID            string `json:"id"`
	Item          string `json:"item"`
	Owner         string `json:"owner"`
	Open          bool   `json:"open"`
	HighBid       int64  `json:"high_bid"`
	HighBidder    string `json:"high_bidder"`
}

// NewUserPayload is the JSON body of a NEW_USER command.
type NewUserPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewAuctionPayload is the JSON body of a NEW_AUCTION command.
type NewAuctionPayload struct {
	ID    string `json:"id"`
	Item  string `json:"item"`
	Owner string `json:"owner"`
}

// CloseAuctionPayload is the JSON body of a CLOSE_AUCTION command.
type CloseAuctionPayload struct {
	ID string `json:"id"`
}

// NewBidPayload is the JSON body of a NEW_BID command.
type NewBidPayload struct {
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Amount    int64  `json:"amount"`
}

// Store is the in-memory backend. All mutation happens inside Apply, which
// the applier calls with entries strictly in commit order, so the map
// access here needs no more than the same mutex discipline the reference
// Store used for concurrent reads from Stats/Get.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*User
	auctions map[string]*Auction
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*User),
		auctions: make(map[string]*Auction),
	}
}

// Apply implements raft.StateMachine.
func (s *Store) Apply(commandType raftcore.CommandType, payload []byte) (interface{}, error) {
	switch commandType {
	case raftcore.NewUser:
		return s.applyNewUser(payload)
	case raftcore.NewAuction:
		return s.applyNewAuction(payload)
	case raftcore.CloseAuction:
		return s.applyCloseAuction(payload)
	case raftcore.NewBid:
		return s.applyNewBid(payload)
	default:
		return nil, fmt.Errorf("%w: %s", raftcore.ErrUnknownCommandType, commandType)
	}
}

func (s *Store) applyNewUser(payload []byte) (interface{}, error) {
	var p NewUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[p.ID]; exists {
		return nil, ErrUserExists
	}
	u := &User{ID: p.ID, Username: p.Username}
	s.users[p.ID] = u
	return u, nil
}

func (s *Store) applyNewAuction(payload []byte) (interface{}, error) {
	var p NewAuctionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.auctions[p.ID]; exists {
		return nil, ErrAuctionExists
	}
	a := &Auction{ID: p.ID, Item: p.Item, Owner: p.Owner, Open: true}
	s.auctions[p.ID] = a
	return a, nil
}

func (s *Store) applyCloseAuction(payload []byte) (interface{}, error) {
	var p CloseAuctionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[p.ID]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	a.Open = false
	return a, nil
}

func (s *Store) applyNewBid(payload []byte) (interface{}, error) {
	var p NewBidPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[p.AuctionID]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	if !a.Open {
		return nil, ErrAuctionClosed
	}
	if p.Amount <= a.HighBid {
		return nil, ErrBidTooLow
	}
	a.HighBid = p.Amount
	a.HighBidder = p.Bidder
	return a, nil
}

// Auction returns a copy of an auction's current state, for tests and for
// a router that wants to answer reads without going through Submit.
func (s *Store) Auction(id string) (Auction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return Auction{}, false
	}
	return *a, true
}

// User returns a copy of a user's current state.
func (s *Store) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}
