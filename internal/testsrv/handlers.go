package testsrv

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManiGOo/feedapp-go/internal/models"
)

func withViewer(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

func viewerFrom(ctx context.Context) int64 {
	uid, _ := ctx.Value(ctxKey{}).(int64)
	return uid
}

func idParam(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

// --- auth ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	var rec *userRec
	for _, u := range s.users {
		if u.user.Username == in.Username {
			rec = u
			break
		}
	}
	s.mu.Unlock()

	if rec == nil || rec.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	pair := s.IssueTokens(rec.user.ID)
	writeJSON(w, http.StatusOK, models.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         rec.user,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.user.Username == in.Username {
			s.mu.Unlock()
			writeJSON(w, http.StatusConflict, map[string]string{"error": "username taken"})
			return
		}
	}
	s.nextUserID++
	u := models.User{ID: s.nextUserID, Username: in.Username, Email: in.Email}
	s.users[u.ID] = &userRec{user: u, password: in.Password}
	s.mu.Unlock()

	pair := s.IssueTokens(u.ID)
	writeJSON(w, http.StatusOK, models.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         u,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if s.refreshGate != nil {
		<-s.refreshGate
	}

	var in models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	uid, ok := s.refreshTokens[in.RefreshToken]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	writeJSON(w, http.StatusOK, models.RefreshResponse{
		AccessToken: s.issueAccess(uid, time.Now().Add(s.accessTTL)),
	})
}

// --- users ---

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid := viewerFrom(r.Context())

	s.mu.Lock()
	rec, ok := s.users[uid]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.User{"user": rec.user})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	uid := viewerFrom(r.Context())

	var in models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	rec, ok := s.users[uid]
	if ok {
		if in.Username != "" {
			rec.user.Username = in.Username
		}
		if in.Bio != "" {
			rec.user.Bio = in.Bio
		}
		if in.AvatarURL != "" {
			rec.user.AvatarURL = in.AvatarURL
		}
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.User{"user": rec.user})
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())
	uid := idParam(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[uid]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	var posts []models.Post
	for _, p := range s.posts {
		if p.post.AuthorID == uid {
			posts = append(posts, s.viewPost(p, viewer))
		}
	}

	var followers, following int64
	for fid, set := range s.follows {
		if set[uid] {
			followers++
		}
		if fid == uid {
			following = int64(len(set))
		}
	}

	writeJSON(w, http.StatusOK, models.Profile{
		User:           rec.user,
		Posts:          posts,
		FollowerCount:  followers,
		FollowingCount: following,
	})
}

// --- posts ---

// viewPost собирает представление поста для конкретного зрителя.
// Вызывается под s.mu.
func (s *Server) viewPost(rec *postRec, viewer int64) models.Post {
	p := rec.post
	p.LikeCount = int64(len(rec.likes))
	p.LikedByMe = rec.likes[viewer]
	p.CommentsCount = int64(len(rec.comments))
	p.IsFollowedAuthor = s.follows[viewer][p.AuthorID]

	return p
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	s.mu.Lock()
	out := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, s.viewPost(p, viewer))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFollowingFeed(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	s.mu.Lock()
	out := make([]models.Post, 0)
	for _, p := range s.posts {
		if s.follows[viewer][p.post.AuthorID] {
			out = append(out, s.viewPost(p, viewer))
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())

	var in models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	author := s.users[viewer]
	s.nextPostID++
	p := models.Post{
		ID:        s.nextPostID,
		AuthorID:  viewer,
		Author:    author.user.Username,
		AvatarURL: author.user.AvatarURL,
		Content:   in.Content,
		MediaURL:  in.MediaURL,
		MediaType: in.MediaType,
		CreatedAt: time.Now().UTC().Unix(),
	}
	s.posts = append(s.posts, &postRec{post: p, likes: make(map[int64]bool)})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())
	id := idParam(r)

	s.mu.Lock()
	rec := s.findPost(id)
	if rec == nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "post not found"})
		return
	}
	out := models.PostDetail{Post: s.viewPost(rec, viewer)}
	out.Comments = append(out.Comments, rec.comments...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())
	id := idParam(r)

	s.mu.Lock()
	rec := s.findPost(id)
	if rec == nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "post not found"})
		return
	}

	if rec.likes[viewer] {
		delete(rec.likes, viewer)
	} else {
		rec.likes[viewer] = true
	}

	out := models.LikeResult{Liked: rec.likes[viewer], LikeCount: int64(len(rec.likes))}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())
	id := idParam(r)

	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	rec := s.findPost(id)
	if rec == nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "post not found"})
		return
	}

	author := s.users[viewer]
	s.nextCommentID++
	c := models.Comment{
		ID:        s.nextCommentID,
		PostID:    id,
		AuthorID:  viewer,
		Author:    author.user.Username,
		AvatarURL: author.user.AvatarURL,
		Content:   in.Content,
		CreatedAt: time.Now().UTC().Unix(),
	}
	rec.comments = append(rec.comments, c)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, c)
}

// findPost — поиск поста по id; вызывается под s.mu.
func (s *Server) findPost(id int64) *postRec {
	for _, p := range s.posts {
		if p.post.ID == id {
			return p
		}
	}

	return nil
}

// --- follow ---

func (s *Server) handleToggleFollow(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())
	target := idParam(r)

	s.mu.Lock()
	if s.follows[viewer] == nil {
		s.follows[viewer] = make(map[int64]bool)
	}
	if s.follows[viewer][target] {
		delete(s.follows[viewer], target)
	} else {
		s.follows[viewer][target] = true
	}
	out := models.FollowResult{IsFollowing: s.follows[viewer][target]}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())
	uid := idParam(r)

	s.mu.Lock()
	out := make([]models.FollowUser, 0)
	for fid, set := range s.follows {
		if set[uid] {
			if rec, ok := s.users[fid]; ok {
				out = append(out, models.FollowUser{
					ID:           rec.user.ID,
					Username:     rec.user.Username,
					AvatarURL:    rec.user.AvatarURL,
					FollowedByMe: s.follows[viewer][fid],
				})
			}
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r.Context())
	uid := idParam(r)

	s.mu.Lock()
	out := make([]models.FollowUser, 0)
	for fid := range s.follows[uid] {
		if rec, ok := s.users[fid]; ok {
			out = append(out, models.FollowUser{
				ID:           rec.user.ID,
				Username:     rec.user.Username,
				AvatarURL:    rec.user.AvatarURL,
				FollowedByMe: s.follows[viewer][fid],
			})
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}
