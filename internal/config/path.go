package config

const (
	RootPath = "/"

	APIPostsPath = "/api/v1/posts"

	PostsSavePath   = "/posts/save"
	PostsUpdatePath = "/posts/update/"
	PostsViewPath   = "/posts/"

	SSEPath = "/sse"

	//? These paths must match the paths in the embed directive
	TemplatesLocalDir = "templates"

	TemplateLayout = "layout.html"
	TemplateIndex  = "index.html"
	TemplateSave   = "posts-save.html"
	TemplateUpdate = "posts-update.html"
	TemplatePost   = "post.html"
)
