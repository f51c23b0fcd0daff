// Package biz 实现目录控制台的核心业务逻辑。
//
// 主要组件：
//   - Reconciler: 制品内容截断协调，必要时追加一次全量拉取
//   - ArtifactController: 制品编辑、差异计算、冲突处理以及审批/废弃流转
//   - SearchNormalizer: 搜索参数规范化与结果展示模型
//   - ProjectService / ArtifactCreator / Reindexer: 项目管理、制品创建和重建索引
//
// 视图状态通过 ArtifactSession、SearchSession、ProjectsSession 显式传入，
// 包内不持有任何进程级可变状态。
package biz
