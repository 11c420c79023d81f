// Package docs 手工维护的 OpenAPI 描述，与 handler 上的 swag 注释保持一致，注册给 gin-swagger
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/posts": {
            "get": {"tags": ["帖子"], "summary": "帖子列表（新的在前）", "parameters": [
                {"type": "integer", "default": 1, "name": "page", "in": "query"},
                {"type": "integer", "default": 10, "name": "page_size", "in": "query"}
            ], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}},
            "post": {"tags": ["帖子"], "summary": "发布帖子", "responses": {
                "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/response.Response"}}
            }}
        },
        "/api/v1/posts/mine": {
            "get": {"tags": ["帖子"], "summary": "我的帖子", "parameters": [
                {"type": "integer", "default": 1, "name": "page", "in": "query"},
                {"type": "integer", "default": 10, "name": "page_size", "in": "query"}
            ], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/posts/saved": {
            "get": {"tags": ["帖子"], "summary": "收藏列表（按收藏时间倒序）", "parameters": [
                {"type": "integer", "default": 1, "name": "page", "in": "query"},
                {"type": "integer", "default": 10, "name": "page_size", "in": "query"}
            ], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/posts/{id}": {
            "get": {"tags": ["帖子"], "summary": "帖子详情", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}}},
            "put": {"tags": ["帖子"], "summary": "编辑帖子（省略 image_url 保留原图）", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Response"}}}},
            "delete": {"tags": ["帖子"], "summary": "删除帖子", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/posts/{id}/like": {
            "post": {"tags": ["互动"], "summary": "切换点赞", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/posts/{id}/save": {
            "post": {"tags": ["互动"], "summary": "切换收藏", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/posts/{id}/comments": {
            "get": {"tags": ["评论"], "summary": "评论列表（新的在前）", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}},
            "post": {"tags": ["评论"], "summary": "发表评论", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/comments/{id}": {
            "delete": {"tags": ["评论"], "summary": "删除评论", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/notifications": {
            "get": {"tags": ["通知"], "summary": "通知列表", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/notifications/unread-count": {
            "get": {"tags": ["通知"], "summary": "未读通知数", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/notifications/{id}/read": {
            "post": {"tags": ["通知"], "summary": "标记已读", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/notifications/read-all": {
            "post": {"tags": ["通知"], "summary": "全部标记已读", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/uploads": {
            "post": {"tags": ["帖子"], "summary": "上传图片（jpeg/png/gif/webp）", "consumes": ["multipart/form-data"],
                "parameters": [{"type": "file", "name": "image", "in": "formData", "required": true}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/auth/register": {
            "post": {"tags": ["账号"], "summary": "注册", "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/auth/login": {
            "post": {"tags": ["账号"], "summary": "登录，返回 Bearer 令牌", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/api/v1/auth/me": {
            "get": {"tags": ["账号"], "summary": "当前账号信息", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}}}
        },
        "/healthz": {
            "get": {"tags": ["运维"], "summary": "健康检查", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}}
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "errors": {},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Colmena API",
	Description:      "Posts, likes, saves, comments and notifications for the Colmena community.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
