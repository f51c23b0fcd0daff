package errors

// 目录控制台服务代码: 21 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 21 (catalog console)
// - BB: 类别代码
// - CCC: 序号

var (
	// 客户端校验错误 (类别 01)，不会发起网络请求
	ErrProjectRequired       = NewRequestErr(ServiceCatalogConsole, 1, "Project is required.", "必须选择项目")
	ErrProjectNameRequired   = NewRequestErr(ServiceCatalogConsole, 2, "Project name is required.", "项目名称不能为空")
	ErrInvalidProjectID      = NewRequestErr(ServiceCatalogConsole, 3, "Invalid project id.", "项目 ID 无效")
	ErrInvalidArtifactID     = NewRequestErr(ServiceCatalogConsole, 4, "Invalid artifact id.", "制品 ID 无效")
	ErrSearchProjectRequired = NewRequestErr(ServiceCatalogConsole, 5, "Select a project before searching.", "搜索前请先选择项目")
	ErrInvalidArtifact       = NewRequestErr(ServiceCatalogConsole, 6, "Invalid artifact payload", "制品参数无效")
	ErrInvalidStatus         = NewRequestErr(ServiceCatalogConsole, 7, "Unknown artifact status", "未知的制品状态")
	ErrInvalidSearchMode     = NewRequestErr(ServiceCatalogConsole, 8, "Unknown search mode", "未知的搜索模式")
	ErrInvalidContentMode    = NewRequestErr(ServiceCatalogConsole, 9, "Unknown content mode", "未知的内容显示模式")

	// 编辑前置条件 (类别 03)
	ErrEditNotPermitted = NewPreconditionErr(ServiceCatalogConsole, 1,
		"Editing is disabled because this artifact is not in DRAFT status.", "制品不是 DRAFT 状态，禁止编辑")
	ErrEditRequiresRawMode = NewPreconditionErr(ServiceCatalogConsole, 2,
		"Switch to Raw mode to edit artifact content.", "请切换到 Raw 模式后再编辑")
	ErrContentIncomplete = NewPreconditionErr(ServiceCatalogConsole, 3,
		"Content is truncated; load the full content before editing it.", "内容已被截断，请加载完整内容后再编辑")

	// 资源错误 (类别 04)
	ErrNoArtifactLoaded = NewNotFoundErr(ServiceCatalogConsole, 1, "No artifact is loaded.", "尚未加载制品")

	// 冲突 (类别 05)
	ErrDraftOnlyEdit = NewConflictErr(ServiceCatalogConsole, 1,
		"Editing is only available for DRAFT artifacts.", "仅 DRAFT 状态的制品可以编辑")
	ErrBusy = NewConflictErr(ServiceCatalogConsole, 2,
		"Another operation is already in progress.", "已有操作正在进行")
	ErrStaleResponse = NewConflictErr(ServiceCatalogConsole, 3,
		"Response discarded because a newer request superseded it.", "响应已过期，已被更新的请求取代")

	// 内部错误 (类别 07)
	ErrInconsistentArtifact = NewInternalErr(ServiceCatalogConsole, 1,
		"Artifact content does not match its reported length.", "制品内容与声明长度不一致")
	ErrEmptyResponse = NewInternalErr(ServiceCatalogConsole, 2,
		"Catalog service returned an empty response.", "目录服务返回空响应")
)
