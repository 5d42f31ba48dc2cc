// models — модели данных REST API feedAPP, как их отдаёт сервер.
//
// Пакет описывает только контракт провода: JSON-теги повторяют реальные
// имена полей API (auth-эндпойнты используют camelCase, ленты — snake_case).
// Никакой бизнес-логики здесь нет.
package models

// User — профиль пользователя.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// Profile — ответ GET /users/{id}: пользователь, его посты и
// производные счётчики подписок.
type Profile struct {
	User           User   `json:"user"`
	Posts          []Post `json:"posts"`
	FollowerCount  int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}

// Post — пост ленты.
//
// LikeCount и LikedByMe обязаны быть взаимно согласованы: счётчик отражает
// множество реакций, включающее (или не включающее) реакцию текущего
// пользователя ровно тогда, когда LikedByMe истинен (ложен).
type Post struct {
	ID       int64  `json:"id"`
	AuthorID int64  `json:"author_id"`
	Author   string `json:"author"`
	// AvatarURL — аватар автора поста.
	AvatarURL string `json:"avatar_url"`
	Content   string `json:"content"`
	// MediaURL/MediaType — приложенное медиа; MediaType: "image" | "video".
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
	LikeCount int64  `json:"like_count"`
	LikedByMe bool   `json:"liked_by_me"`
	// CommentsCount — число комментариев к посту.
	CommentsCount int64 `json:"comments_count"`
	// IsFollowedAuthor — подписан ли текущий пользователь на автора.
	IsFollowedAuthor bool `json:"is_followed_author"`
	// CreatedAt — Unix UTC.
	CreatedAt int64 `json:"created_at"`
}

// PostDetail — ответ GET /posts/{id}: пост вместе с комментариями.
type PostDetail struct {
	Post
	Comments []Comment `json:"comments"`
}

// Comment — комментарий к посту.
type Comment struct {
	ID       int64  `json:"id"`
	PostID   int64  `json:"post_id"`
	AuthorID int64  `json:"author_id"`
	Author   string `json:"author"`
	// AvatarURL — аватар автора комментария.
	AvatarURL string `json:"avatar_url"`
	Content   string `json:"content"`
	// CreatedAt — Unix UTC.
	CreatedAt int64 `json:"created_at"`
}

// FollowUser — элемент списков подписчиков/подписок.
type FollowUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	AvatarURL    string `json:"avatar_url"`
	FollowedByMe bool   `json:"followed_by_me"`
}

// LikeResult — авторитетный ответ сервера на переключение лайка.
// Сервер — источник истины по итоговому счётчику: между локальным
// переключением и ответом могли успеть другие пользователи.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// FollowResult — авторитетный ответ сервера на переключение подписки.
type FollowResult struct {
	IsFollowing bool `json:"isFollowing"`
}

// CreatePostRequest — тело POST /posts.
type CreatePostRequest struct {
	Content   string `json:"content"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// UpdateProfileRequest — тело PUT /users/me; пустые поля не изменяются.
type UpdateProfileRequest struct {
	Username  string `json:"username,omitempty"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
